package cli

// This file contains the run command retrofitting a directory of tests.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/perfgo/autodebugify/discover"
	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/report"
	"github.com/perfgo/autodebugify/runner"
	"github.com/urfave/cli/v2"
)

func (a *App) run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		_ = cli.ShowSubcommandHelp(ctx)
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	startTime := time.Now()

	root, err := filepath.Abs(cfg.TestsDir)
	if err != nil {
		return err
	}

	tests, err := discover.Tests(root)
	if err != nil {
		return err
	}
	a.logger.Info().Str("dir", root).Int("tests", len(tests)).Str("mode", cfg.Mode).Msg("Processing tests")

	sink, err := report.Create(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close report file")
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &processor{
		logger: a.logger,
		runner: runner.NewLit(a.logger, cfg.LitPath, cfg.Timeout),
		sink:   sink,
		root:   root,
		opts: processOptions{
			Mode:          model.Mode(cfg.Mode),
			OptArg:        cfg.OptArg,
			FlushTrailing: cfg.FlushTrailing,
			Keep:          cfg.Keep,
			Jobs:          cfg.Jobs,
		},
	}

	outcomes, runErr := p.processSuite(sigCtx, tests)

	s := summarize(outcomes)
	s.Duration = time.Since(startTime)
	s.print(ctx.App.Writer, sink.Path())

	reports, bugs := sink.Counts()
	a.logger.Debug().Int("reports", reports).Int("bugs", bugs).Str("path", sink.Path()).Msg("Report file written")

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return cli.Exit("interrupted", 130)
		}
		return runErr
	}
	return nil
}
