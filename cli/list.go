package cli

// This file contains the list command for summarising a report file.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/report"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterPass := ctx.String("pass")
	limit := ctx.Int("limit")
	w := ctx.App.Writer

	reports, err := report.Load(a.logger, ctx.String("report-file"))
	if err != nil {
		return err
	}

	// Apply pass filter if specified
	var filtered []model.PassReport
	for _, r := range reports {
		if filterPass == "" || strings.Contains(r.Pass, filterPass) {
			filtered = append(filtered, r)
		}
	}

	if len(filtered) == 0 {
		if filterPass != "" {
			fmt.Fprintf(w, "No reports found matching pass: %s\n", filterPass)
		} else {
			fmt.Fprintln(w, "No reports found")
		}
		return nil
	}

	summaries := report.Summarize(filtered)

	headerColor.Fprintf(w, "\n=== Passes (%s total) ===\n\n", humanize.Comma(int64(len(summaries))))
	for _, s := range summaries {
		bugColor.Fprintf(w, "%-40s", s.Pass)
		fmt.Fprintf(w, "  bugs=%s  tests=%s  dropped=%s  not-generated=%s\n",
			humanize.Comma(int64(s.Bugs)),
			humanize.Comma(int64(s.Tests)),
			humanize.Comma(int64(s.Drops)),
			humanize.Comma(int64(s.NotGenerate)),
		)
	}

	// Bugs per test, most affected first
	byTest := map[string]int{}
	for _, r := range filtered {
		byTest[r.File] += len(r.Bugs)
	}
	tests := make([]string, 0, len(byTest))
	for t := range byTest {
		tests = append(tests, t)
	}
	sort.Slice(tests, func(i, j int) bool {
		if byTest[tests[i]] != byTest[tests[j]] {
			return byTest[tests[i]] > byTest[tests[j]]
		}
		return tests[i] < tests[j]
	})

	displayTests := tests
	if limit > 0 && limit < len(displayTests) {
		displayTests = displayTests[:limit]
	}

	headerColor.Fprintf(w, "\n=== Tests (%s total) ===\n\n", humanize.Comma(int64(len(tests))))
	for _, t := range displayTests {
		fmt.Fprintf(w, "%6s  %s\n", humanize.Comma(int64(byTest[t])), t)
	}
	fmt.Fprintln(w)

	return nil
}
