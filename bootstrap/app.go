package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/linetally/config"
	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
)

// App wires configuration, logging and telemetry around one finite or
// signal-terminated task.
//
//	app, err := bootstrap.NewApp(cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return process(ctx, app.Metrics)
//	})
type App struct {
	Name    string
	Version string
	Cfg     *config.AppConfig
	Logger  *logger.Logger
	// Metrics is nil unless telemetry is enabled; a nil *Metrics records nothing.
	Metrics *observability.Metrics

	gracefulTimeout time.Duration
	signals         []os.Signal

	onStart []Hook
	onStop  []Hook
}

// NewApp applies defaults, validates cfg, installs the global logger and
// registers the component loggers.
func NewApp(cfg *config.AppConfig, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 5 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	switch {
	case o.logger != nil:
		app.Logger = o.logger
	case o.logWriter != nil:
		app.Logger = logger.NewWithWriter(&cfg.Logging, cfg.Name, o.logWriter)
	default:
		app.Logger = logger.New(&cfg.Logging, cfg.Name)
	}
	logger.SetGlobalLogger(app.Logger)
	logger.RegisterDefaults()

	if cfg.Telemetry.Enabled {
		app.OnStart(app.startTelemetry)
	}
	return app, nil
}


// RunTask runs the start hooks, then task with a context that is cancelled
// on SIGINT or SIGTERM, then the stop hooks. The task error wins over a
// shutdown error.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	a.Logger.Debug("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, a.onStart); err != nil {
		stopErr := a.stop()
		if stopErr != nil {
			a.Logger.Warn("shutdown after failed start", logger.ErrorFields("stop", stopErr))
		}
		return fmt.Errorf("start hook failed: %w", err)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.signals...)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, cancelling", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// Shutdown runs the stop hooks. Use when not going through RunTask.
func (a *App) Shutdown() error {
	return a.stop()
}

// stop runs the stop hooks in reverse registration order within the
// graceful timeout. Every hook runs; the first error is returned.
func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var first error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.Error("stop hook failed", logger.ErrorFields("stop", err))
			if first == nil {
				first = err
			}
		}
	}
	a.onStop = nil
	return first
}
