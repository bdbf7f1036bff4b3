package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	fitintervals "github.com/lucasjlepore/fit-intervals"
	"github.com/lucasjlepore/fit-intervals/config"
	"github.com/lucasjlepore/fit-intervals/logging"
	"github.com/lucasjlepore/fit-intervals/server"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "Config file (yaml, json or toml)")
		addr    = flag.String("addr", "", "Listen address, overrides server.addr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <fit-file>...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env failed: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config failed: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	engine, err := fitintervals.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatal("engine setup failed", zap.Error(err))
	}
	defer engine.Close()

	for _, path := range flag.Args() {
		if _, err := engine.LoadFile(path); err != nil {
			logger.Error("skipping FIT file", zap.String("path", path), zap.Error(err))
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
	if err := Run(context.Background(), engine, cfg.Server.Addr, signals, nil); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

// Run serves the engine over HTTP and waits for a termination signal.
func Run(ctx context.Context, engine *fitintervals.Engine, addr string, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(engine.Workspace, engine.Assembler, engine.Config, engine.Logger.Named("http"))

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, addr)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.App.ShutdownWithContext(shutdownCtx)
}
