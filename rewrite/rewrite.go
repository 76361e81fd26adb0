// Package rewrite turns the RUN lines of an existing compiler regression
// test into invocations of the debugify instrumented pipeline.
package rewrite

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/perfgo/autodebugify/model"
)

const (
	runMarker = "RUN:"
	// Optimization level of the opt invocation that runs the checks
	optLevel = "-O3"
)

// Options control a rewrite.
type Options struct {
	Mode model.Mode
	// PassArg is appended verbatim to every opt invocation, e.g. a pass
	// pipeline selection.
	PassArg string
	// ArtifactBase is the path prefix of the files capturing the output of
	// the instrumented invocations. The invocation number is appended.
	ArtifactBase string
}

func (o Options) validate() error {
	if o.ArtifactBase == "" {
		return errors.New("no artifact path given")
	}
	if _, err := model.ParseMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

// Result is a rewritten test.
type Result struct {
	Body []byte
	// Artifacts is the number of instrumented invocations, their outputs
	// are captured in ArtifactPath(base, 1..Artifacts).
	Artifacts int
}

// ArtifactPaths returns the paths of all artifacts of the result.
func (r Result) ArtifactPaths(base string) []string {
	paths := make([]string, 0, r.Artifacts)
	for i := 1; i <= r.Artifacts; i++ {
		paths = append(paths, ArtifactPath(base, i))
	}
	return paths
}

// ArtifactPath returns the path capturing the output of the n-th
// instrumented invocation (1-based).
func ArtifactPath(base string, n int) string {
	return base + strconv.Itoa(n)
}

// Func rewrites the content of a test.
type Func func(src []byte, opts Options) (Result, error)

// ForFile selects the rewriter for a test by its extension.
func ForFile(path string) (Func, error) {
	switch filepath.Ext(path) {
	case ".c":
		return Source, nil
	case ".ll":
		return IR, nil
	}
	return nil, fmt.Errorf("unsupported test type: %s", path)
}

// splitLines splits src into lines keeping their line endings.
func splitLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(src), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// redirect returns the redirection of the combined output to the n-th artifact.
func redirect(opts Options, n int) string {
	return ">& " + shellescape.Quote(ArtifactPath(opts.ArtifactBase, n))
}
