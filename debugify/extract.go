package debugify

// extract.go contains the extraction of bug records from debugify warning
// lines. Each output format of debugify is handled by its own dialect.

import (
	"strings"

	"github.com/perfgo/autodebugify/model"
)

// Dialect extracts a bug record from a warning line. ok is false if the
// line is not in the dialect's format.
type Dialect interface {
	Extract(line string) (bug model.Bug, ok bool)
}

// Dialects are tried in order, the first match wins.
var Dialects = []Dialect{
	SyntheticDialect{},
	OriginalDialect{},
}

// ExtractBug returns the bug record described by line. The returned bug has
// an empty action if no dialect recognizes the line.
func ExtractBug(line string) model.Bug {
	line = strings.TrimRight(line, "\r\n")
	for _, d := range Dialects {
		if bug, ok := d.Extract(line); ok {
			return bug
		}
	}
	return model.Bug{}
}

// SyntheticDialect handles the output of -debugify-each:
//
//	WARNING: Instruction with empty DebugLoc in function <fn> --  <instr>
type SyntheticDialect struct{}

const (
	syntheticMarker    = "Instruction with empty DebugLoc in function"
	syntheticSeparator = "--  "
)

func (SyntheticDialect) Extract(line string) (model.Bug, bool) {
	_, rest, ok := strings.Cut(line, syntheticMarker)
	if !ok {
		return model.Bug{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return model.Bug{}, false
	}
	_, instr, ok := strings.Cut(line, syntheticSeparator)
	if !ok {
		return model.Bug{}, false
	}

	return model.Bug{
		Action:   model.ActionDrop,
		BBName:   model.UnknownBlock,
		FnName:   fields[0],
		Instr:    instr,
		Metadata: model.MetadataDILocation,
	}, true
}

// OriginalDialect handles the output of -verify-each-debuginfo-preserve:
//
//	<pass> dropped DILocation of  <instr> (BB: <bb>, Fn: <fn>, File: <file>)
//	<pass> did not generate DILocation for  <instr> (BB: <bb>, Fn: <fn>, File: <file>)
type OriginalDialect struct{}

func (OriginalDialect) Extract(line string) (model.Bug, bool) {
	if !strings.Contains(line, string(model.MetadataDILocation)) {
		return model.Bug{}, false
	}

	var bug model.Bug
	var marker string
	switch {
	case strings.Contains(line, "dropped"):
		bug.Action = model.ActionDrop
		marker = "of  "
	case strings.Contains(line, "did not generate"):
		bug.Action = model.ActionNotGenerate
		marker = "for  "
	default:
		return model.Bug{}, false
	}

	_, instr, ok := strings.Cut(line, marker)
	if !ok {
		return model.Bug{}, false
	}
	instr, _, _ = strings.Cut(instr, " (")

	bug.Instr = instr
	bug.FnName = field(line, "Fn: ")
	bug.BBName = field(line, "BB: ")
	if bug.BBName == "" {
		bug.BBName = model.UnknownBlock
	}
	bug.Metadata = model.MetadataDILocation

	return bug, true
}

// field returns the value following key up to the next ", " or ")".
func field(line, key string) string {
	_, value, ok := strings.Cut(line, key)
	if !ok {
		return ""
	}
	if i := strings.Index(value, ", "); i >= 0 {
		return value[:i]
	}
	value, _, _ = strings.Cut(value, ")")
	return value
}
