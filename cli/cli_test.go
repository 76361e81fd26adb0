package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/perfgo/autodebugify/litconfig"
	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	app := newApp(zerolog.Nop())
	app.cli.Writer = &out
	app.cli.ErrWriter = io.Discard
	app.cli.Reader = strings.NewReader(stdin)
	app.cli.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{AppName}, args...))
	return out.String(), err
}

func TestAppMetadata(t *testing.T) {
	app := newApp(zerolog.Nop())
	require.Equal(t, AppName, app.cli.Name)
	require.Empty(t, app.cli.Authors)

	app.SetVersion("v1.2.0", "0123456789abcdef", "2026-10-18")
	require.Equal(t, "v1.2.0 (commit: 01234567, built: 2026-10-18)", app.cli.Version)
}

func TestRewriteCommand(t *testing.T) {
	dir := t.TempDir()
	test := filepath.Join(dir, "add.c")
	writeFile(t, test, addTest)

	out, err := runApp(t, "", "rewrite", "--opt-arg=-passes=sroa", test)
	require.NoError(t, err)
	require.Contains(t, out, "// RUN: %clang -target x86_64 -emit-llvm -Xclang -disable-llvm-passes -c %s -o - | opt -O3 -debugify-each -disable-output -passes=sroa >& ")
	require.NotContains(t, out, "FileCheck")
	require.Contains(t, out, "int add(int a)")

	out, err = runApp(t, "", "rewrite", "--diff", "--mode", "original", test)
	require.NoError(t, err)
	require.Contains(t, out, "--- "+test)
	require.Contains(t, out, "+++ "+test+" (rewritten)")
	require.Contains(t, out, "-// RUN: %clang -target x86_64 -O2 -S %s -o - | FileCheck %s")
	require.Contains(t, out, "-verify-each-debuginfo-preserve")

	_, err = runApp(t, "", "rewrite", "--mode", "each", test)
	require.Error(t, err)

	_, err = runApp(t, "", "rewrite")
	require.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "modified_test.out1")
	writeFile(t, log, sroaOutput)

	out, err := runApp(t, "", "parse", "--test-name", "/CodeGen/add.c", log)
	require.NoError(t, err)
	require.Equal(t, `{"file":"/CodeGen/add.c","pass":"SROAPass","bugs":[[{"action":"drop","bb-name":"unknown","fn-name":"add","instr":"%add = add nsw i32 %a, 1","metadata":"DILocation"}]]}`+"\n", out)

	trailing := "WARNING: Instruction with empty DebugLoc in function f --  ret void\n"
	out, err = runApp(t, trailing, "parse", "-")
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = runApp(t, trailing, "parse", "--flush-trailing", "-")
	require.NoError(t, err)
	require.Contains(t, out, `"file":"-","pass":"unknown"`)

	_, err = runApp(t, "", "parse", filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestListCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	sink, err := report.Create(path)
	require.NoError(t, err)
	bug := model.Bug{Action: model.ActionDrop, BBName: "entry", FnName: "f", Instr: "ret void", Metadata: model.MetadataDILocation}
	require.NoError(t, sink.Write(
		model.PassReport{File: "/CodeGen/a.c", Pass: "SROAPass", Bugs: []model.Bug{bug, bug}},
		model.PassReport{File: "/CodeGen/b.c", Pass: "InstCombinePass", Bugs: []model.Bug{bug}},
	))
	require.NoError(t, sink.Close())

	out, err := runApp(t, "", "list", "--report-file", path)
	require.NoError(t, err)
	require.Contains(t, out, "=== Passes (2 total) ===")
	require.Contains(t, out, "bugs=2  tests=1  dropped=2  not-generated=0")
	require.Contains(t, out, "     2  /CodeGen/a.c")
	require.Less(t, strings.Index(out, "SROAPass"), strings.Index(out, "InstCombinePass"))

	out, err = runApp(t, "", "list", "--report-file", path, "--pass", "InstCombine")
	require.NoError(t, err)
	require.NotContains(t, out, "SROAPass")
	require.Contains(t, out, "/CodeGen/b.c")

	out, err = runApp(t, "", "list", "--report-file", path, "--pass", "GVN")
	require.NoError(t, err)
	require.Equal(t, "No reports found matching pass: GVN\n", out)
}

// fakeLitScript writes a debugify failure into every output file the
// rewritten test given as its second argument redirects to.
const fakeLitScript = `#!/bin/sh
for out in $(sed -n 's/.*>& //p' "$2"); do
  printf 'WARNING: Instruction with empty DebugLoc in function add --  ret i32 %%1\nCheckFunctionDebugify [SROAPass]: FAIL\n' > "$out"
done
`

func TestRunCommand(t *testing.T) {
	root := newSuite(t)
	dir := t.TempDir()
	lit := filepath.Join(dir, "llvm-lit")
	require.NoError(t, os.WriteFile(lit, []byte(fakeLitScript), 0755))
	reportPath := filepath.Join(dir, "report.json")

	out, err := runApp(t, "", "run", "--process-tests", root, "--use-lit", lit, "--report-file", reportPath)
	require.NoError(t, err)
	require.Contains(t, out, "Total number of tests: 2")
	require.Contains(t, out, "Number of skipped tests: 0")
	require.Contains(t, out, "Tests with debug info bugs: 2 (2 bugs)")

	reports, err := report.Load(zerolog.Nop(), reportPath)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "/CodeGen/add.c", reports[0].File)
	require.Equal(t, "/Transforms/loop.ll", reports[1].File)
	require.Equal(t, "SROAPass", reports[0].Pass)

	cfg, err := os.ReadFile(filepath.Join(root, "CodeGen", litconfig.FileName))
	require.NoError(t, err)
	require.Equal(t, litConfig, string(cfg))
}

func TestRunCommandInvalidArgs(t *testing.T) {
	_, err := runApp(t, "", "run", "--use-lit", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.ExitCode())
}
