package report

// load.go contains reading back report files.

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/perfgo/autodebugify/model"
	"github.com/rs/zerolog"
)

// Load reads all reports of the report file at path. Lines that are not
// valid reports are logged and skipped.
func Load(logger zerolog.Logger, path string) ([]model.PassReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	return Read(logger, f)
}

// Read reads reports from r.
func Read(logger zerolog.Logger, r io.Reader) ([]model.PassReport, error) {
	var reports []model.PassReport

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var report model.PassReport
		if err := json.Unmarshal([]byte(line), &report); err != nil {
			logger.Warn().Err(err).Int("line", lineNo).Msg("Failed to parse report")
			continue
		}
		reports = append(reports, report)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading reports: %w", err)
	}

	return reports, nil
}

// PassSummary aggregates the reports of one pass.
type PassSummary struct {
	Pass        string
	Tests       int
	Bugs        int
	Drops       int
	NotGenerate int
}

// Summarize aggregates reports per pass, ordered by number of bugs.
func Summarize(reports []model.PassReport) []PassSummary {
	byPass := map[string]*PassSummary{}
	tests := map[string]map[string]struct{}{}

	for _, r := range reports {
		s, ok := byPass[r.Pass]
		if !ok {
			s = &PassSummary{Pass: r.Pass}
			byPass[r.Pass] = s
			tests[r.Pass] = map[string]struct{}{}
		}
		tests[r.Pass][r.File] = struct{}{}
		for _, b := range r.Bugs {
			s.Bugs++
			switch b.Action {
			case model.ActionDrop:
				s.Drops++
			case model.ActionNotGenerate:
				s.NotGenerate++
			}
		}
	}

	summaries := make([]PassSummary, 0, len(byPass))
	for pass, s := range byPass {
		s.Tests = len(tests[pass])
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Bugs != summaries[j].Bugs {
			return summaries[i].Bugs > summaries[j].Bugs
		}
		return summaries[i].Pass < summaries[j].Pass
	})
	return summaries
}
