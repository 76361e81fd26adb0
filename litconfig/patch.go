// Package litconfig temporarily patches the directory level lit
// configuration of a test.
package litconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the name of the directory level lit configuration.
const FileName = "lit.local.cfg"

// debugFlag is removed from the configuration: the rewritten tests decide
// themselves whether debug info is generated.
var debugFlag = []byte("-g")

// Patch is an applied modification of a lit.local.cfg. The zero value and a
// nil *Patch are no-ops.
type Patch struct {
	path     string
	original []byte
	mode     fs.FileMode
	restored bool
}

// Path returns the path of the patched configuration, or "" if there is none.
func Path(testFile string) string {
	return filepath.Join(filepath.Dir(testFile), FileName)
}

// Apply removes the debug info flag from the lit.local.cfg next to testFile.
// If there is no such file Apply returns a no-op patch. The returned patch
// must be restored on every path, including failures.
func Apply(testFile string) (*Patch, error) {
	path := Path(testFile)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Patch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat lit config: %w", err)
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lit config: %w", err)
	}

	p := &Patch{path: path, original: original, mode: info.Mode().Perm()}
	if err := os.WriteFile(path, Strip(original), p.mode); err != nil {
		// The write may have truncated the file
		if rerr := p.Restore(); rerr != nil {
			return nil, errors.Join(fmt.Errorf("failed to write lit config: %w", err), rerr)
		}
		return nil, fmt.Errorf("failed to write lit config: %w", err)
	}

	return p, nil
}

// Strip removes every occurrence of the debug info flag from a lit config.
// This is a plain text removal, the config is python and not parsed.
func Strip(config []byte) []byte {
	lines := bytes.SplitAfter(config, []byte("\n"))
	out := make([]byte, 0, len(config))
	for _, l := range lines {
		out = append(out, bytes.ReplaceAll(l, debugFlag, nil)...)
	}
	return out
}

// Active reports whether the patch modified a file.
func (p *Patch) Active() bool {
	return p != nil && p.path != ""
}

// ConfigPath returns the path of the patched file, or "" for a no-op patch.
func (p *Patch) ConfigPath() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Restore writes back the original content byte for byte. It is safe to
// call more than once.
func (p *Patch) Restore() error {
	if !p.Active() || p.restored {
		return nil
	}
	if err := os.WriteFile(p.path, p.original, p.mode); err != nil {
		return fmt.Errorf("failed to restore lit config %s: %w", p.path, err)
	}
	p.restored = true
	return nil
}
