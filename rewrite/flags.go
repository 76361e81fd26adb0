package rewrite

// flags.go contains the classifier deciding which compiler arguments of a
// RUN line survive the rewrite, and the tokenizer feeding it.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrMalformedDirective is returned when a RUN line cannot be tokenized.
var ErrMalformedDirective = errors.New("malformed RUN directive")

// Classify returns the token if it has to be kept in the rewritten compiler
// invocation and "" if it has to be dropped. Only the target selection and
// user macros change what the instrumented rebuild produces.
func Classify(token string) string {
	switch {
	// Target selection, e.g. -target, --target=x86_64, -triple
	case strings.Contains(token, "target"), strings.Contains(token, "triple"):
		return token
	// Macro with separate value, the value is attached by the caller
	case token == "-D":
		return token
	// Macro with attached value, e.g. -DFOO=1
	case strings.Contains(token, "-D"):
		return token
	}
	return ""
}

// valueFlags are flags whose value is the following token. They are kept
// together with it. The map value is the spelling used in the rewritten
// invocation, which always goes through the driver.
var valueFlags = map[string]string{
	"-D":       "-D",
	"-target":  "-target",
	"--target": "--target",
	"-triple":  "-target",
}

// frontendFlags select target properties but are only understood by the
// frontend. They are passed through the driver with -Xclang.
var frontendFlags = map[string]bool{
	"-target-feature": true,
	"-target-cpu":     true,
	"-target-abi":     true,
}

// KeepArgs filters the tokens of a compiler invocation down to the ones
// that have to be preserved.
func KeepArgs(tokens []string) []string {
	kept := []string{}
	afterOutput := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		// Skip the old output file, the rewritten invocation writes to stdout
		if afterOutput {
			afterOutput = false
			if strings.Contains(tok, "%t") {
				continue
			}
		}
		if tok == "-o" {
			afterOutput = true
			continue
		}

		if frontendFlags[tok] {
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++
				kept = append(kept, "-Xclang", tok, "-Xclang", tokens[i])
			}
			continue
		}

		if name, ok := valueFlags[tok]; ok {
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++
				kept = append(kept, name, tokens[i])
			}
			continue
		}

		if k := Classify(tok); k != "" {
			kept = append(kept, k)
		}
	}

	return kept
}

// Tokenize splits the argument part of a compiler invocation into words.
// Everything from the first unquoted redirection, pipe or command separator
// on is ignored: once rewritten, the invocation gets its own redirection.
func Tokenize(args string) ([]string, error) {
	args = strings.TrimRight(args, " \t\r\n")
	// lit line continuation
	args = strings.TrimSuffix(args, "\\")
	args = args[:hardStop(args)]

	tokens, err := shellquote.Split(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedDirective, args, err)
	}
	return tokens, nil
}

// hardStop returns the offset of the first unquoted redirection, pipe or
// command separator in s, or len(s) if there is none.
func hardStop(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case quote == '"':
			if c == '\\' {
				i++
			} else if c == '"' {
				quote = 0
			}
		case c == '\\':
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == '>' || c == '<' || c == '|' || c == ';' || c == '&':
			return i
		}
	}
	return len(s)
}
