// Package debugify parses the diagnostics printed by opt when debugify is
// enabled into per-pass bug reports.
package debugify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/perfgo/autodebugify/model"
)

// State of the diagnostic state machine.
type State uint8

const (
	// Idle means no pass boundary has been seen yet.
	Idle State = iota
	// InPass means at least one pass boundary has been seen.
	InPass
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InPass:
		return "in-pass"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// UnterminatedPass is the pass name of bugs flushed at the end of the input
// without a boundary naming their pass.
const UnterminatedPass = "unknown"

// Machine is the state of the parser for one artifact.
type Machine struct {
	State State
	// Short path of the test the artifact belongs to
	File string
	// Pass named by the last boundary
	Pass string
	// Bugs seen since the last boundary
	Bugs []model.Bug
}

// Step consumes a single line. It returns the new machine and, if the line
// concluded a pass with pending bugs, the report for that pass. The input
// machine is not modified.
//
// A boundary line is printed after the checks of the pass it names, so the
// pending bugs are reported for that pass.
func Step(m Machine, line string) (Machine, *model.PassReport) {
	if strings.Contains(line, "Skipping") {
		return m, nil
	}

	if pass, ok := Boundary(line); ok {
		var report *model.PassReport
		if len(m.Bugs) > 0 {
			report = &model.PassReport{File: m.File, Pass: pass, Bugs: m.Bugs}
		}
		m.State = InPass
		m.Pass = pass
		m.Bugs = nil
		return m, report
	}

	if strings.Contains(line, "WARNING") {
		if bug := ExtractBug(line); bug.Action != "" {
			// Full slice expression so the caller's machine is never aliased
			m.Bugs = append(m.Bugs[:len(m.Bugs):len(m.Bugs)], bug)
		}
	}
	return m, nil
}

// Boundary reports whether line marks the end of the checks of a pass and
// returns the pass name.
//
// Synthetic mode prints "CheckFunctionDebugify [<pass>]: PASS|FAIL" (or
// CheckModuleDebugify), original mode prints "<pass>: FAIL".
func Boundary(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")

	if strings.Contains(line, "CheckModuleDebugify") || strings.Contains(line, "CheckFunctionDebugify") {
		_, rest, ok := strings.Cut(line, "[")
		if !ok {
			return "", false
		}
		pass, _, ok := strings.Cut(rest, "]")
		if !ok {
			return "", false
		}
		return pass, true
	}

	if strings.Contains(line, ": FAIL") {
		pass, _, _ := strings.Cut(line, ":")
		return strings.TrimSpace(pass), true
	}

	return "", false
}

// Options control the parser.
type Options struct {
	// FlushTrailing reports bugs that are still pending at the end of the
	// input under UnterminatedPass. By default they are dropped, as only a
	// boundary line concludes a pass.
	FlushTrailing bool
}

// Parser parses the captured output of one instrumented invocation.
type Parser struct {
	opts    Options
	machine Machine
	dropped int
}

// New creates a parser for an artifact of the test with the given short path.
func New(file string, opts Options) *Parser {
	return &Parser{
		opts:    opts,
		machine: Machine{State: Idle, File: file},
	}
}

// Feed consumes a single line and returns the report concluded by it, if any.
func (p *Parser) Feed(line string) *model.PassReport {
	var report *model.PassReport
	p.machine, report = Step(p.machine, line)
	return report
}

// Finish ends the input. It returns the trailing report if FlushTrailing is
// set and bugs are pending.
func (p *Parser) Finish() *model.PassReport {
	defer func() { p.machine.Bugs = nil }()

	if len(p.machine.Bugs) == 0 {
		return nil
	}
	if !p.opts.FlushTrailing {
		p.dropped += len(p.machine.Bugs)
		return nil
	}
	return &model.PassReport{File: p.machine.File, Pass: UnterminatedPass, Bugs: p.machine.Bugs}
}

// Dropped returns the number of trailing bugs discarded by Finish.
func (p *Parser) Dropped() int {
	return p.dropped
}

// Parse parses the whole output from reader.
func (p *Parser) Parse(reader io.Reader) ([]model.PassReport, error) {
	var reports []model.PassReport

	scanner := bufio.NewScanner(reader)
	// Instructions with large aggregates make for long lines
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if report := p.Feed(scanner.Text()); report != nil {
			reports = append(reports, *report)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	if report := p.Finish(); report != nil {
		reports = append(reports, *report)
	}

	return reports, nil
}

// ParseFile parses the artifact at path for the test with the given short path.
func ParseFile(path, file string, opts Options) ([]model.PassReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reports, err := New(file, opts).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return reports, nil
}
