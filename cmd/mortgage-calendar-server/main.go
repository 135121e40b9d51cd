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

	"github.com/iwvelando/mortgage-calendar/internal/logging"
	"github.com/iwvelando/mortgage-calendar/internal/metrics"
	"github.com/iwvelando/mortgage-calendar/internal/server"
	"github.com/iwvelando/mortgage-calendar/internal/tracing"
	"github.com/iwvelando/mortgage-calendar/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	address := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	maxBodySize := flag.String("max-body-size", "", "request body limit override (e.g. 64K, 1M)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *maxBodySize != "" {
		size, err := server.ParseSize(*maxBodySize)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid -max-body-size\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		cfg.SetBodySizeBytes(size)
	}

	logger, err := logging.New(cfg.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{server.WithChartOptions(cfg.Chart)}

	if cfg.Tracing.Enabled {
		tp, err := tracing.Setup(ctx, logger, cfg.Tracing, version)
		if err != nil {
			logger.Fatal("failed to set up tracing",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush traces",
					zap.String("op", "main"),
					zap.Error(err),
				)
			}
		}()
		opts = append(opts, server.WithTracerProvider(tp))
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}

	handler := server.NewHandler(logger, cfg.BodySizeBytes(), version, opts...)
	srv := server.NewServer(cfg, handler)

	go func() {
		logger.Info("server starting",
			zap.String("op", "main"),
			zap.String("address", srv.Addr),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server",
		zap.String("op", "main"),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return
	}

	logger.Info("server exited",
		zap.String("op", "main"),
	)
}
