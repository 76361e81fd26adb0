package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/perfgo/autodebugify/model"
)

var (
	headerColor  = color.New(color.Bold)
	okColor      = color.New(color.FgGreen)
	skippedColor = color.New(color.FgYellow)
	bugColor     = color.New(color.FgRed, color.Bold)
)

type summary struct {
	Total     int
	Skipped   int
	Anomalies int
	Bugs      int
	Missing   int
	Duration  time.Duration
}

func summarize(outcomes []model.Outcome) summary {
	var s summary
	for _, o := range outcomes {
		s.Total++
		if !o.Passed {
			s.Skipped++
		}
		if len(o.Reports) > 0 {
			s.Anomalies++
		}
		s.Bugs += o.BugCount()
		s.Missing += o.Missing
	}
	return s
}

func (s summary) print(w io.Writer, reportFile string) {
	headerColor.Fprintln(w, "===== Processed tests ======")
	fmt.Fprintf(w, "Total number of tests: %s\n", humanize.Comma(int64(s.Total)))

	c := okColor
	if s.Skipped > 0 {
		c = skippedColor
	}
	c.Fprintf(w, "Number of skipped tests: %s\n", humanize.Comma(int64(s.Skipped)))

	c = okColor
	if s.Bugs > 0 {
		c = bugColor
	}
	c.Fprintf(w, "Tests with debug info bugs: %s (%s bugs)\n", humanize.Comma(int64(s.Anomalies)), humanize.Comma(int64(s.Bugs)))

	if s.Missing > 0 {
		skippedColor.Fprintf(w, "Missing test outputs: %s\n", humanize.Comma(int64(s.Missing)))
	}
	if s.Duration > 0 {
		fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(time.Millisecond))
	}
	if s.Bugs > 0 {
		fmt.Fprintf(w, "Reports written to %s\n", reportFile)
	}
}
