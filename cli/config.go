package cli

// This file contains the configuration of the run command: built-in
// defaults, an optional TOML file and the command line flags.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/perfgo/autodebugify/model"
	"github.com/perfgo/autodebugify/runner"
	"github.com/urfave/cli/v2"
)

// ErrInvalidArgs is returned for an invalid invocation.
var ErrInvalidArgs = errors.New("invalid input")

// DefaultConfigFile is read from the working directory if it exists.
const DefaultConfigFile = ".autodebugify.toml"

const (
	defaultLitPath    = "~/compiler/build_dev/bin/llvm-lit"
	defaultReportFile = "./report_test.json"
)

// Config of a run.
type Config struct {
	TestsDir      string        `toml:"process-tests"`
	LitPath       string        `toml:"use-lit"`
	ReportFile    string        `toml:"report-file"`
	OptArg        string        `toml:"opt-arg"`
	Mode          string        `toml:"mode"`
	Jobs          int           `toml:"jobs"`
	Timeout       time.Duration `toml:"timeout"`
	FlushTrailing bool          `toml:"flush-trailing"`
	Keep          bool          `toml:"keep"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LitPath:    defaultLitPath,
		ReportFile: defaultReportFile,
		Mode:       string(model.ModeSynthetic),
		Jobs:       1,
	}
}

// LoadConfigFile decodes the TOML file at path on top of cfg. Unknown keys
// are rejected.
func LoadConfigFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "process-tests",
			Aliases: []string{"t"},
			Usage:   "Directory of the tests to process",
		},
		&cli.StringFlag{
			Name:  "use-lit",
			Usage: "Path to the llvm-lit binary",
			Value: defaultLitPath,
		},
		&cli.StringFlag{
			Name:  "report-file",
			Usage: "File the JSON reports are written to (one per line)",
			Value: defaultReportFile,
		},
		&cli.StringFlag{
			Name:  "opt-arg",
			Usage: "Argument appended to every opt invocation (e.g. -passes=sroa)",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Debug info source: synthetic (debugify) or original (-g)",
			Value: string(model.ModeSynthetic),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Number of test directories processed in parallel (directories sharing a lit.local.cfg run sequentially)",
			Value:   1,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deadline for a single test run, 0 disables it",
		},
		&cli.BoolFlag{
			Name:  "flush-trailing",
			Usage: "Report bugs printed after the last pass boundary under pass \"unknown\"",
		},
		&cli.BoolFlag{
			Name:  "keep",
			Usage: "Keep rewritten tests and their outputs (don't clean up after execution)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: fmt.Sprintf("TOML file with defaults for these flags (default: %s if present)", DefaultConfigFile),
		},
	}
}

// loadConfig merges defaults, the config file and the flags set on the
// command line, in increasing precedence.
func loadConfig(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	path := ctx.String("config")
	if path != "" {
		if err := LoadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if _, err := os.Stat(DefaultConfigFile); err == nil {
		if err := LoadConfigFile(DefaultConfigFile, &cfg); err != nil {
			return cfg, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	if ctx.IsSet("process-tests") {
		cfg.TestsDir = ctx.String("process-tests")
	}
	if ctx.IsSet("use-lit") {
		cfg.LitPath = ctx.String("use-lit")
	}
	if ctx.IsSet("report-file") {
		cfg.ReportFile = ctx.String("report-file")
	}
	if ctx.IsSet("opt-arg") {
		cfg.OptArg = ctx.String("opt-arg")
	}
	if ctx.IsSet("mode") {
		cfg.Mode = ctx.String("mode")
	}
	if ctx.IsSet("jobs") {
		cfg.Jobs = ctx.Int("jobs")
	}
	if ctx.IsSet("timeout") {
		cfg.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("flush-trailing") {
		cfg.FlushTrailing = ctx.Bool("flush-trailing")
	}
	if ctx.IsSet("keep") {
		cfg.Keep = ctx.Bool("keep")
	}

	return cfg, nil
}

// Validate checks the configuration and resolves the lit binary to an
// absolute path.
func (c *Config) Validate() error {
	if c.TestsDir == "" {
		return fmt.Errorf("%w: no test directory given", ErrInvalidArgs)
	}
	info, err := os.Stat(c.TestsDir)
	if err != nil {
		return fmt.Errorf("%w: test directory: %w", ErrInvalidArgs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidArgs, c.TestsDir)
	}

	lit, err := runner.Resolve(c.LitPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	c.LitPath = lit

	if _, err := model.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be at least 1, got %d", ErrInvalidArgs, c.Jobs)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidArgs, c.Timeout)
	}
	if c.ReportFile == "" {
		return fmt.Errorf("%w: no report file given", ErrInvalidArgs)
	}
	return nil
}
