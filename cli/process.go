package cli

// This file contains the orchestration of a run: every test is rewritten,
// run through the test runner and the captured debugify output is parsed
// into reports.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/perfgo/autodebugify/debugify"
	"github.com/perfgo/autodebugify/discover"
	"github.com/perfgo/autodebugify/litconfig"
	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/report"
	"github.com/perfgo/autodebugify/rewrite"
	"github.com/perfgo/autodebugify/runner"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type processOptions struct {
	Mode          model.Mode
	OptArg        string
	FlushTrailing bool
	Keep          bool
	Jobs          int
}

type processor struct {
	logger zerolog.Logger
	runner runner.Runner
	sink   *report.Sink
	root   string
	opts   processOptions
}

// processSuite processes all tests. Groups of tests sharing a lit.local.cfg
// are processed by up to opts.Jobs workers, the tests of a group
// sequentially. The outcomes are in the order of tests.
func (p *processor) processSuite(ctx context.Context, tests []string) ([]model.Outcome, error) {
	index := make(map[string]int, len(tests))
	for i, t := range tests {
		index[t] = i
	}

	groups := discover.ByConfigScope(p.root, tests)
	outcomes := make([]model.Outcome, len(tests))

	jobs := p.opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(groups), 1)))

	for _, group := range groups {
		g.Go(func() error {
			for _, test := range group {
				if err := gctx.Err(); err != nil {
					return err
				}

				outcome, err := p.processTest(gctx, test)
				outcomes[index[test]] = outcome
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// processTest rewrites and runs a single test. Problems with the test or
// its runner invocation are logged and leave the outcome not passed. An
// error is only returned if the run was cancelled or the reports can't be
// written.
func (p *processor) processTest(ctx context.Context, test string) (model.Outcome, error) {
	outcome := model.Outcome{
		Test:      test,
		ShortPath: discover.ShortPath(p.root, test),
	}
	logger := p.logger.With().Str("test", outcome.ShortPath).Logger()

	tmpPath, result, err := p.writeRewritten(test)
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping test, failed to rewrite")
		return outcome, nil
	}
	outcome.Artifacts = result.Artifacts

	base := artifactBase(tmpPath)
	artifacts := result.ArtifactPaths(base)
	defer p.cleanup(logger, tmpPath, artifacts)

	patch, err := litconfig.Apply(test)
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping test, failed to patch lit config")
		return outcome, nil
	}
	defer func() {
		if err := patch.Restore(); err != nil {
			logger.Error().Err(err).Str("path", patch.ConfigPath()).Msg("Failed to restore lit config")
		}
	}()

	logger.Debug().Str("rewritten", tmpPath).Int("artifacts", result.Artifacts).Msg("Running rewritten test")

	res, err := p.runner.Run(ctx, tmpPath)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return outcome, fmt.Errorf("failed to run %s: %w", outcome.ShortPath, err)
		}
		for _, artifact := range artifacts {
			logger.Info().Str("artifact", artifact).Msg("DEBUGIFY-EACH - NOT PROCESSED")
		}
		logger.Warn().Err(err).Msg("Skipping test, failed to execute test runner")
		return outcome, nil
	}

	if !res.Passed() {
		for _, artifact := range artifacts {
			logger.Info().Str("artifact", artifact).Msg("DEBUGIFY-EACH - NOT PROCESSED")
		}
		logger.Warn().
			Err(res.Err()).
			Int("exit_code", res.ExitCode).
			Dur("duration", res.Duration).
			Msg("Skipping test, test runner failed")
		if res.Output != "" {
			logger.Debug().Str("output", res.Output).Msg("Test runner output")
		}
		return outcome, nil
	}
	outcome.Passed = true

	for _, artifact := range artifacts {
		reports, err := p.parseArtifact(logger, artifact, outcome.ShortPath)
		if errors.Is(err, fs.ErrNotExist) {
			outcome.Missing++
			logger.Warn().Str("artifact", artifact).Msg("Test output file is not created, probably one of the previous commands failed")
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("artifact", artifact).Msg("Failed to parse test output")
			continue
		}

		if len(reports) == 0 {
			logger.Info().Str("artifact", artifact).Msg("DEBUGIFY-EACH - PASS")
			continue
		}

		bugs := 0
		for _, r := range reports {
			bugs += len(r.Bugs)
		}
		logger.Info().Str("artifact", artifact).Int("bugs", bugs).Msg("DEBUGIFY-EACH - FAIL")

		if err := p.sink.Write(reports...); err != nil {
			return outcome, err
		}
		outcome.Reports = append(outcome.Reports, reports...)
	}

	return outcome, nil
}

// writeRewritten writes the rewritten test next to test, so it is picked
// up by the same lit configuration. No file is left behind on error.
func (p *processor) writeRewritten(test string) (string, rewrite.Result, error) {
	fn, err := rewrite.ForFile(test)
	if err != nil {
		return "", rewrite.Result{}, err
	}

	src, err := os.ReadFile(test)
	if err != nil {
		return "", rewrite.Result{}, fmt.Errorf("failed to read test: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(test), discover.TempPrefix+"*"+filepath.Ext(test))
	if err != nil {
		return "", rewrite.Result{}, fmt.Errorf("failed to create rewritten test: %w", err)
	}
	path := f.Name()

	result, err := fn(src, rewrite.Options{
		Mode:         p.opts.Mode,
		PassArg:      p.opts.OptArg,
		ArtifactBase: artifactBase(path),
	})
	if err == nil {
		_, err = f.Write(result.Body)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", rewrite.Result{}, err
	}

	return path, result, nil
}

func (p *processor) parseArtifact(logger zerolog.Logger, path, file string) ([]model.PassReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser := debugify.New(file, debugify.Options{FlushTrailing: p.opts.FlushTrailing})
	reports, err := parser.Parse(f)
	if err != nil {
		return nil, err
	}
	if n := parser.Dropped(); n > 0 {
		logger.Debug().Str("artifact", path).Int("bugs", n).Msg("Dropped bugs after the last pass boundary")
	}
	return reports, nil
}

func (p *processor) cleanup(logger zerolog.Logger, tmpPath string, artifacts []string) {
	if p.opts.Keep {
		logger.Info().Str("rewritten", tmpPath).Msg("Keeping rewritten test (cleanup skipped)")
		return
	}

	for _, path := range append([]string{tmpPath}, artifacts...) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to clean up")
		}
	}
}

// artifactBase returns the prefix of the output files of the rewritten
// test at path.
func artifactBase(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".out"
}
