package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mode selects how debug information is exercised by the rewritten tests.
type Mode string

const (
	// ModeSynthetic attaches synthetic debug locations before every pass
	// (opt -debugify-each).
	ModeSynthetic Mode = "synthetic"
	// ModeOriginal compiles with -g and checks that the real debug
	// locations survive every pass (opt -verify-each-debuginfo-preserve).
	ModeOriginal Mode = "original"
)

// ParseMode validates a mode name given on the command line or in a config file.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSynthetic, ModeOriginal:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid debugify mode %q (synthetic or original)", s)
}

// Action is what happened to a debug location in a pass.
type Action string

const (
	ActionDrop        Action = "drop"
	ActionNotGenerate Action = "not-generate"
)

// MetadataKind names the kind of debug metadata a bug refers to.
type MetadataKind string

const MetadataDILocation MetadataKind = "DILocation"

// UnknownBlock is used as basic block name when the diagnostic does not carry one.
const UnknownBlock = "unknown"

// Bug is a single debug location anomaly reported by debugify.
type Bug struct {
	Action   Action       `json:"action"`
	BBName   string       `json:"bb-name"`
	FnName   string       `json:"fn-name"`
	Instr    string       `json:"instr"`
	Metadata MetadataKind `json:"metadata"`
}

// PassReport groups the bugs found in one test for one optimization pass.
type PassReport struct {
	// Short path of the test, relative to the test suite root
	File string
	// Name of the optimization pass
	Pass string
	Bugs []Bug
}

// passReportJSON is the on-disk shape of a PassReport. The bugs are
// wrapped in an extra list, consumers of existing reports expect that.
type passReportJSON struct {
	File string  `json:"file"`
	Pass string  `json:"pass"`
	Bugs [][]Bug `json:"bugs"`
}

func (r PassReport) MarshalJSON() ([]byte, error) {
	bugs := r.Bugs
	if bugs == nil {
		bugs = []Bug{}
	}

	// Instructions routinely contain vector types like <4 x i32>
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(passReportJSON{
		File: r.File,
		Pass: r.Pass,
		Bugs: [][]Bug{bugs},
	}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (r *PassReport) UnmarshalJSON(data []byte) error {
	var raw passReportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.File = raw.File
	r.Pass = raw.Pass
	r.Bugs = nil
	for _, group := range raw.Bugs {
		r.Bugs = append(r.Bugs, group...)
	}
	return nil
}

// Outcome is the result of processing one test.
type Outcome struct {
	// Path of the original test file
	Test string
	// Short path used in reports
	ShortPath string
	// Passed reports whether the test runner succeeded. A test can pass
	// and still contribute reports.
	Passed bool
	// Number of instrumented invocations in the rewritten test
	Artifacts int
	// Number of expected artifacts that were not created
	Missing int
	Reports []PassReport
}

// BugCount returns the number of bugs over all reports of the outcome.
func (o Outcome) BugCount() int {
	n := 0
	for _, r := range o.Reports {
		n += len(r.Bugs)
	}
	return n
}
