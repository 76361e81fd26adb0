package cli

// This file contains the rewrite command, a dry run of the rewriting of a
// single test.

import (
	"fmt"
	"os"

	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/rewrite"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli/v2"
)

func (a *App) rewrite(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		_ = cli.ShowSubcommandHelp(ctx)
		return cli.Exit("error: expected exactly one test file", 1)
	}
	test := ctx.Args().First()

	mode, err := model.ParseMode(ctx.String("mode"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	fn, err := rewrite.ForFile(test)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(test)
	if err != nil {
		return fmt.Errorf("failed to read test: %w", err)
	}

	result, err := fn(src, rewrite.Options{
		Mode:         mode,
		PassArg:      ctx.String("opt-arg"),
		ArtifactBase: artifactBase(test),
	})
	if err != nil {
		return err
	}
	a.logger.Debug().Str("test", test).Int("artifacts", result.Artifacts).Msg("Rewrote test")

	if !ctx.Bool("diff") {
		_, err := ctx.App.Writer.Write(result.Body)
		return err
	}

	return difflib.WriteUnifiedDiff(ctx.App.Writer, difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(src)),
		B:        difflib.SplitLines(string(result.Body)),
		FromFile: test,
		ToFile:   test + " (rewritten)",
		Context:  3,
	})
}
