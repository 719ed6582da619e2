// Command linetally counts the lines of a file after passing each through a
// transform and filter pipeline.
//
//	linetally [flags] <file> [stream]
//
// Without "stream" the file is read once and the final counts are printed.
// With "stream" the file is followed as it grows and the cumulative counts
// are printed after every line until the process is interrupted.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/linetally/bootstrap"
	"github.com/kbukum/linetally/config"
	"github.com/kbukum/linetally/driver"
	"github.com/kbukum/linetally/errors"
	"github.com/kbukum/linetally/linefunc"
	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/report"
	"github.com/kbukum/linetally/source"
	"github.com/kbukum/linetally/version"
)

const streamArg = "stream"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type cliFlags struct {
	pollInterval time.Duration
	configFile   string
	envFile      string
	logLevel     string
	showVersion  bool
}

func newFlagSet(stderr io.Writer, f *cliFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(config.ServiceName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&f.pollInterval, "poll-interval", config.DefaultPollInterval, "sleep between reopening the file in stream mode")
	fs.StringVar(&f.configFile, "config", "", "path to a YAML config file")
	fs.StringVar(&f.envFile, "env-file", "", "path to a .env file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <file> [%s]\n\nFlags:\n", config.ServiceName, streamArg)
		fs.PrintDefaults()
	}
	return fs
}

// run is main without the process exit, returning the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f cliFlags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return errors.ExitOK
		}
		fs.Usage()
		return fail(stderr, errors.Usage(err.Error()))
	}

	if f.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", config.ServiceName, version.Get())
		return errors.ExitOK
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fail(stderr, errors.Usage("no input file name provided"))
	}
	path := fs.Arg(0)
	stream := fs.NArg() > 1 && fs.Arg(1) == streamArg

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		return fail(stderr, err)
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogWriter(stderr))
	if err != nil {
		return fail(stderr, err)
	}

	err = app.RunTask(ctx, func(ctx context.Context) error {
		if stream {
			return runStream(ctx, app, path, stdout)
		}
		return runBatch(ctx, app, path, stdout)
	})
	if err != nil {
		return fail(stderr, err)
	}
	return errors.ExitOK
}

// loadConfig loads the config layers, then applies flag overrides.
func loadConfig(fs *pflag.FlagSet, f *cliFlags) (*config.AppConfig, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	if fs.Changed("poll-interval") {
		if f.pollInterval <= 0 {
			return nil, errors.Usage("--poll-interval must be positive")
		}
		cfg.Source.PollInterval = f.pollInterval
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	cfg.Version = version.Get().Short()
	return cfg, cfg.Validate()
}

func sourceOptions(app *bootstrap.App) []source.Option {
	return []source.Option{
		source.WithResetOnTruncate(app.Cfg.Source.ResetOnTruncate),
		source.WithMaxLineLength(app.Cfg.Source.MaxLineLength),
		source.WithMetrics(app.Metrics),
		source.WithLogger(logger.Get(logger.ComponentSource)),
	}
}

func newDriver(app *bootstrap.App) *driver.Driver {
	return driver.New(linefunc.DefaultProcessor(),
		driver.WithLogger(logger.Get(logger.ComponentDriver)),
		driver.WithMetrics(app.Metrics),
	)
}

func runBatch(ctx context.Context, app *bootstrap.App, path string, stdout io.Writer) error {
	lines, err := source.ReadAll(path, 0, sourceOptions(app)...)
	if err != nil {
		return err
	}
	snap, err := newDriver(app).Batch(ctx, lines)
	if err != nil {
		return err
	}
	if err := report.WriteBatch(stdout, snap); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func runStream(ctx context.Context, app *bootstrap.App, path string, stdout io.Writer) error {
	lines, err := source.ReadAll(path, app.Cfg.Source.PollInterval, sourceOptions(app)...)
	if err != nil {
		return err
	}
	err = report.WriteStream(ctx, stdout, newDriver(app).Stream(lines))
	if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
		// interrupted by SIGINT/SIGTERM
		return nil
	}
	return err
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "%s: %v\n", config.ServiceName, err)
	return errors.ExitCode(err)
}
