package rewrite

// ir.go contains the rewriter for IR level (.ll) tests.

import (
	"strings"

	"github.com/perfgo/autodebugify/model"
)

// IR rewrites an IR level test. The existing RUN lines are dropped and a
// single opt invocation with debugify enabled is appended, so the result
// always has exactly one artifact.
func IR(src []byte, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	for _, line := range splitLines(src) {
		if strings.Contains(line, runMarker) {
			continue
		}
		b.WriteString(line)
	}

	out := b.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		b.WriteString("\n")
	}

	parts := []string{"; RUN: opt %s"}
	if opts.Mode == model.ModeOriginal {
		parts = append(parts, "-debugify", optLevel, "-enable-new-pm=false", "-verify-each-debuginfo-preserve")
	} else {
		parts = append(parts, optLevel, "-debugify-each")
	}
	parts = append(parts, "-disable-output")
	if opts.PassArg != "" {
		parts = append(parts, opts.PassArg)
	}
	parts = append(parts, redirect(opts, 1))
	b.WriteString(strings.Join(parts, " ") + "\n")

	return Result{Body: []byte(b.String()), Artifacts: 1}, nil
}
