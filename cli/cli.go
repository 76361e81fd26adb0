package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/perfgo/autodebugify/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "autodebugify"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	return newApp(logger)
}

func newApp(logger zerolog.Logger) *App {
	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Retrofit LLVM regression tests with debug info preservation checks",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			}, runFlags()...),
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}

	// Default action when no command is specified
	app.cli.Action = app.run

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Rewrite, run and check all tests of a directory",
		Action: app.run,
		Flags:  runFlags(),
		Description: `Every .c and .ll test below --process-tests is rewritten so that its
compiler invocations run opt with debugify checks after every pass. The
rewritten test is run with llvm-lit and the debug info bugs it reports
are appended to --report-file, one JSON object per line.

Examples:
  autodebugify --process-tests llvm-project/clang/test/CodeGen
  autodebugify run -t llvm/test/Transforms/SROA --opt-arg=-passes=sroa
  autodebugify run -t clang/test/CodeGen --mode original --jobs 8`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "rewrite",
		Usage:     "Print a rewritten test without running it",
		ArgsUsage: "TEST",
		Action:    app.rewrite,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Debug info source: synthetic (debugify) or original (-g)",
				Value: string(model.ModeSynthetic),
			},
			&cli.StringFlag{
				Name:  "opt-arg",
				Usage: "Argument appended to every opt invocation (e.g. -passes=sroa)",
			},
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "Print a unified diff against the original test",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "parse",
		Usage:     "Parse captured debugify output into JSON reports",
		ArgsUsage: "LOG... (- for stdin)",
		Action:    app.parse,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "test-name",
				Usage: "Test path recorded in the reports (default: the log path)",
			},
			&cli.BoolFlag{
				Name:  "flush-trailing",
				Usage: "Report bugs printed after the last pass boundary under pass \"unknown\"",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "Summarise a report file per pass and per test",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "report-file",
				Usage: "Report file to summarise",
				Value: defaultReportFile,
			},
			&cli.StringFlag{
				Name:    "pass",
				Aliases: []string{"p"},
				Usage:   "Filter by pass name (e.g., SROA)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of listed tests (default: 20)",
				Value:   20,
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
