// Package discover finds the tests of a test suite directory.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/perfgo/autodebugify/litconfig"
)

// Extensions of the tests that can be rewritten.
var Extensions = []string{".c", ".ll"}

// TempPrefix is the name prefix of rewritten tests. Leftovers of an
// interrupted run are never picked up as tests.
const TempPrefix = "modified_test-"

// inputsDir holds auxiliary files of the tests in its parent directory.
const inputsDir = "Inputs"

// Tests returns the paths of all tests below root in lexical order.
func Tests(root string) ([]string, error) {
	var tests []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == inputsDir {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), TempPrefix) || !isTest(d.Name()) {
			return nil
		}
		tests = append(tests, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk test directory: %w", err)
	}

	return tests, nil
}

func isTest(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ByConfigScope groups tests that can see the same lit.local.cfg. A
// configuration applies to its directory and every directory below it, so
// tests are grouped under the topmost directory below root holding one.
// Tests without a configuration above them are grouped by their directory.
// Groups are ordered by that directory, tests keep their order within a
// group.
func ByConfigScope(root string, tests []string) [][]string {
	root = filepath.Clean(root)
	hasConfig := map[string]bool{}
	lookup := func(dir string) bool {
		found, ok := hasConfig[dir]
		if !ok {
			info, err := os.Stat(filepath.Join(dir, litconfig.FileName))
			found = err == nil && info.Mode().IsRegular()
			hasConfig[dir] = found
		}
		return found
	}

	groups := map[string][]string{}
	for _, t := range tests {
		scope := configScope(root, filepath.Dir(t), lookup)
		groups[scope] = append(groups[scope], t)
	}

	scopes := make([]string, 0, len(groups))
	for scope := range groups {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	result := make([][]string, 0, len(scopes))
	for _, scope := range scopes {
		result = append(result, groups[scope])
	}
	return result
}

func configScope(root, dir string, hasConfig func(string) bool) string {
	scope := dir
	for d := dir; within(root, d); d = filepath.Dir(d) {
		if hasConfig(d) {
			scope = d
		}
		if d == root || filepath.Dir(d) == d {
			break
		}
	}
	return scope
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ShortPath returns the path identifying test in reports: the part after
// the last "test" directory, e.g. /CodeGen/foo.c for
// llvm/clang/test/CodeGen/foo.c. Tests outside of a "test" directory are
// identified by their path relative to root.
func ShortPath(root, test string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(test)), "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] == "test" {
			return "/" + strings.Join(parts[i+1:], "/")
		}
	}

	if rel, err := filepath.Rel(root, test); err == nil && !strings.HasPrefix(rel, "..") {
		return "/" + filepath.ToSlash(rel)
	}
	return filepath.ToSlash(test)
}
