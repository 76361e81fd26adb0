// Package runner invokes the external test runner on rewritten tests.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

// ErrTimeout is reported when the runner exceeded its deadline.
var ErrTimeout = errors.New("test runner timed out")

// Runner runs a single test file.
type Runner interface {
	Run(ctx context.Context, test string) (Result, error)
}

// Result of running a test.
type Result struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	// Tail of the combined output, only kept for diagnostics
	Output string
}

// Passed reports whether the test runner succeeded.
func (r Result) Passed() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Err describes why the run did not pass, nil if it passed.
func (r Result) Err() error {
	switch {
	case r.TimedOut:
		return ErrTimeout
	case r.ExitCode != 0:
		return fmt.Errorf("test runner failed with exit code %d", r.ExitCode)
	}
	return nil
}

// outputTail is the amount of runner output kept for diagnostics.
const outputTail = 4096

// Lit runs tests with llvm-lit.
type Lit struct {
	logger  zerolog.Logger
	path    string
	timeout time.Duration
}

// NewLit creates a runner for the llvm-lit binary at path. A timeout of
// zero disables the deadline.
func NewLit(logger zerolog.Logger, path string, timeout time.Duration) *Lit {
	return &Lit{logger: logger, path: path, timeout: timeout}
}

// Args returns the command line running test.
func (l *Lit) Args(test string) []string {
	return []string{l.path, "-a", test}
}

// Run runs test and waits for the runner to exit. A non-zero exit or an
// exceeded deadline is reported in the result, an error is only returned
// if the runner could not be run at all or ctx was cancelled.
func (l *Lit) Run(ctx context.Context, test string) (Result, error) {
	runCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	args := l.Args(test)
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = filepath.Dir(test)
	// Do not wait forever for grandchildren keeping the output open
	cmd.WaitDelay = 5 * time.Second

	out := &tailWriter{limit: outputTail}
	cmd.Stdout = out
	cmd.Stderr = out

	l.logger.Debug().
		Str("command", QuoteCommand(args)).
		Msg("Running test")

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start), Output: out.String()}

	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		res.TimedOut = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("failed to execute test runner: %w", err)
}

// QuoteCommand joins args into a command line with proper shell escaping.
func QuoteCommand(args []string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Resolve expands a leading ~ and looks up bare names in PATH. It returns
// an error if the result is not an existing executable file.
func Resolve(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	if !strings.ContainsRune(path, filepath.Separator) {
		found, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("test runner %q not found: %w", path, err)
		}
		path = found
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("invalid test runner path: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("invalid test runner path: %s is not a file", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("invalid test runner path: %s is not executable", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// tailWriter keeps the last limit bytes written to it.
type tailWriter struct {
	limit int
	buf   []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = append(w.buf[:0], w.buf[len(w.buf)-w.limit:]...)
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return string(w.buf)
}
