package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/demo/config"
	"github.com/tkrause/scopekit/demo/services"
	"github.com/tkrause/scopekit/demo/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := di.NewContainer(
		di.WithService(cfg),
		di.WithService(logger),
		di.WithService(services.NewTransientStamp, di.Transient),
		di.WithService(services.NewNotificationService, di.Scoped),
		di.WithService(services.NewNotificationService, di.WithTag(services.SharedTag)),
		di.WithService(services.NewViewService, di.Scoped),
		di.WithDependencyValidation(),
	)
	if err != nil {
		return err
	}

	// Closing the root container disposes the shared singleton services.
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			logger.Error("closing container", zap.Error(err))
		}
	}()

	return di.Invoke(ctx, c, func(cfg config.Config, logger *zap.Logger) error {
		return serve(ctx, c, cfg, logger)
	})
}

func serve(ctx context.Context, c *di.Container, cfg config.Config, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewRouter(c, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
