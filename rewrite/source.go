package rewrite

// source.go contains the rewriter for source level (C) tests.

import (
	"fmt"
	"path"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/perfgo/autodebugify/model"
)

// droppedMarkers identify RUN lines that only make sense with the output
// of the original invocation: output checks, running the built program,
// shell tests and diffs.
var droppedMarkers = []string{
	"FileCheck",
	"RUN: %t",
	"RUN: test",
	"-s %t",
	"diff",
}

// Source rewrites a source level test. Every RUN line invoking the compiler
// is turned into a compile-to-IR step piped into opt with debugify enabled,
// RUN lines checking the old output are dropped, everything else is copied.
func Source(src []byte, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	n := 0

	for lineNo, line := range splitLines(src) {
		if !strings.Contains(line, runMarker) {
			b.WriteString(line)
			continue
		}

		if start, end, ok := findCompiler(line); ok {
			n++
			rewritten, err := rewriteCompilerLine(line, start, end, opts, n)
			if err != nil {
				return Result{}, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			b.WriteString(rewritten)
			continue
		}

		if dropLine(line) {
			continue
		}
		b.WriteString(line)
	}

	return Result{Body: []byte(b.String()), Artifacts: n}, nil
}

func dropLine(line string) bool {
	for _, m := range droppedMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// rewriteCompilerLine rewrites the RUN line whose compiler word spans line[start:end].
func rewriteCompilerLine(line string, start, end int, opts Options, n int) (string, error) {
	tokens, err := Tokenize(line[end:])
	if err != nil {
		return "", err
	}

	// The rewritten pipeline is expected to succeed, anomalies are only
	// reported as warnings.
	prefix := dropNegation(line[:start])

	parts := []string{prefix + driverName(line[start:end])}
	if opts.Mode == model.ModeOriginal {
		parts = append(parts, "-g")
	}
	for _, tok := range KeepArgs(tokens) {
		parts = append(parts, shellescape.Quote(tok))
	}

	// Emit IR and leave all optimizations to the explicit opt invocation
	parts = append(parts, "-emit-llvm", "-Xclang", "-disable-llvm-passes", "-c", "%s", "-o", "-")
	parts = append(parts, "|", "opt", optLevel)
	if opts.Mode == model.ModeOriginal {
		parts = append(parts, "-verify-each-debuginfo-preserve")
	} else {
		parts = append(parts, "-debugify-each")
	}
	parts = append(parts, "-disable-output")
	if opts.PassArg != "" {
		parts = append(parts, opts.PassArg)
	}
	parts = append(parts, redirect(opts, n))

	return strings.Join(parts, " ") + "\n", nil
}

// findCompiler returns the byte range of the first word after the RUN
// marker that invokes clang.
func findCompiler(line string) (start, end int, ok bool) {
	pos := strings.Index(line, runMarker)
	if pos < 0 {
		return 0, 0, false
	}
	pos += len(runMarker)

	for pos < len(line) {
		for pos < len(line) && isSpace(line[pos]) {
			pos++
		}
		start = pos
		for pos < len(line) && !isSpace(line[pos]) {
			pos++
		}
		if start == pos {
			break
		}
		if isCompiler(line[start:pos]) {
			return start, pos, true
		}
	}
	return 0, 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// isCompiler reports whether word runs the clang driver or frontend, either
// through a lit substitution (%clang, %clang_cc1) or a path.
func isCompiler(word string) bool {
	name := strings.TrimPrefix(path.Base(word), "%")
	switch name {
	case "clang", "clang_cc1":
		return true
	}
	version, ok := strings.CutPrefix(name, "clang-")
	if !ok || version == "" {
		return false
	}
	for _, c := range version {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// driverName returns the driver spelling of a compiler word. The rewritten
// invocation uses driver flags, so the frontend substitution is replaced.
func driverName(word string) string {
	if strings.HasSuffix(word, "%clang_cc1") {
		return strings.TrimSuffix(word, "_cc1")
	}
	return word
}

// dropNegation removes a trailing "not" (or "not --crash") from the part of
// a RUN line preceding the compiler.
func dropNegation(prefix string) string {
	trimmed := strings.TrimRight(prefix, " \t")
	if t, ok := cutWord(trimmed, "--crash"); ok {
		if t2, ok := cutWord(strings.TrimRight(t, " \t"), "not"); ok {
			return t2
		}
		return prefix
	}
	if t, ok := cutWord(trimmed, "not"); ok {
		return t
	}
	return prefix
}

// cutWord removes word from the end of s if it is a whole word.
func cutWord(s, word string) (string, bool) {
	rest, ok := strings.CutSuffix(s, word)
	if !ok {
		return s, false
	}
	if rest != "" && !isSpace(rest[len(rest)-1]) && rest[len(rest)-1] != ':' {
		return s, false
	}
	return rest, true
}
