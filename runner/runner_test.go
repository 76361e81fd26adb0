package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeLit writes an executable shell script standing in for llvm-lit.
func fakeLit(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llvm-lit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modified_test.c")
	require.NoError(t, os.WriteFile(path, []byte("// RUN: true\n"), 0644))
	return path
}

func TestLitRunPassed(t *testing.T) {
	lit := NewLit(zerolog.Nop(), fakeLit(t, `[ "$1" = "-a" ] && [ -f "$2" ] && echo "PASS: $2" && exit 0
exit 9`), 0)

	test := testFile(t)
	res, err := lit.Run(context.Background(), test)
	require.NoError(t, err)
	require.True(t, res.Passed())
	require.NoError(t, res.Err())
	require.Equal(t, "PASS: "+test+"\n", res.Output)
}

func TestLitRunFailed(t *testing.T) {
	lit := NewLit(zerolog.Nop(), fakeLit(t, "echo FAIL >&2\nexit 1"), time.Minute)

	res, err := lit.Run(context.Background(), testFile(t))
	require.NoError(t, err)
	require.False(t, res.Passed())
	require.Equal(t, 1, res.ExitCode)
	require.False(t, res.TimedOut)
	require.EqualError(t, res.Err(), "test runner failed with exit code 1")
	require.Equal(t, "FAIL\n", res.Output)
}

func TestLitRunTimeout(t *testing.T) {
	lit := NewLit(zerolog.Nop(), fakeLit(t, "exec sleep 10"), 100*time.Millisecond)

	start := time.Now()
	res, err := lit.Run(context.Background(), testFile(t))
	require.NoError(t, err)
	require.True(t, res.TimedOut)
	require.False(t, res.Passed())
	require.ErrorIs(t, res.Err(), ErrTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestLitRunCancelled(t *testing.T) {
	lit := NewLit(zerolog.Nop(), fakeLit(t, "exec sleep 10"), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := lit.Run(ctx, testFile(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, res.Passed())
}

func TestLitRunMissingBinary(t *testing.T) {
	lit := NewLit(zerolog.Nop(), filepath.Join(t.TempDir(), "missing"), 0)

	_, err := lit.Run(context.Background(), testFile(t))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	lit := fakeLit(t, "exit 0")

	path, err := Resolve(lit)
	require.NoError(t, err)
	require.Equal(t, lit, path)

	_, err = Resolve(filepath.Dir(lit))
	require.Error(t, err)

	_, err = Resolve(filepath.Join(filepath.Dir(lit), "nope"))
	require.Error(t, err)

	plain := filepath.Join(t.TempDir(), "llvm-lit")
	require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0644))
	_, err = Resolve(plain)
	require.ErrorContains(t, err, "not executable")

	t.Setenv("PATH", filepath.Dir(lit))
	path, err = Resolve("llvm-lit")
	require.NoError(t, err)
	require.Equal(t, lit, path)

	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "bin", "lit"), []byte("#!/bin/sh\n"), 0755))
	path, err = Resolve("~/bin/lit")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "bin", "lit"), path)
}

func TestQuoteCommand(t *testing.T) {
	require.Equal(t, "/opt/llvm/bin/llvm-lit -a '/tmp/my tests/modified_test.c'",
		QuoteCommand([]string{"/opt/llvm/bin/llvm-lit", "-a", "/tmp/my tests/modified_test.c"}))
}

func TestTailWriter(t *testing.T) {
	w := &tailWriter{limit: 4}
	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("defg"))
	require.Equal(t, "defg", w.String())
	require.True(t, strings.HasSuffix(w.String(), "g"))
}
