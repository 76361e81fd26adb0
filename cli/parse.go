package cli

// This file contains the parse command turning captured debugify output
// into reports.

import (
	"fmt"
	"io"
	"os"

	"github.com/perfgo/autodebugify/debugify"
	"github.com/perfgo/autodebugify/report"
	"github.com/urfave/cli/v2"
)

func (a *App) parse(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		_ = cli.ShowSubcommandHelp(ctx)
		return cli.Exit("error: no log file given", 1)
	}

	opts := debugify.Options{FlushTrailing: ctx.Bool("flush-trailing")}

	for _, path := range ctx.Args().Slice() {
		name := ctx.String("test-name")
		if name == "" {
			name = path
		}

		if err := a.parseLog(ctx, path, name, opts); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) parseLog(ctx *cli.Context, path, name string, opts debugify.Options) error {
	var r io.Reader
	if path == "-" {
		r = ctx.App.Reader
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open log: %w", err)
		}
		defer f.Close()
		r = f
	}

	parser := debugify.New(name, opts)
	reports, err := parser.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if n := parser.Dropped(); n > 0 {
		a.logger.Warn().Str("log", path).Int("bugs", n).Msg("Dropped bugs after the last pass boundary, use --flush-trailing to report them")
	}

	return report.Encode(ctx.App.Writer, reports...)
}
