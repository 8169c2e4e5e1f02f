package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tolkbron/translation-gateway/gateway"
	"github.com/tolkbron/translation-gateway/internal/config"
)

func main() {
	// Missing .env is fine; the environment may be set by the platform.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running gateway")
	}
	log.Info().Msg("gateway stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger := newLogger(c.GetEnv())
	displayAppname(c.GetAppName())

	discoverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	oidcCfg, err := gateway.Discover(discoverCtx, c)
	if err != nil {
		return fmt.Errorf("gateway.Discover: %w", err)
	}

	srv, err := gateway.New(c, oidcCfg, gateway.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("gateway.New: %w", err)
	}
	defer srv.Close()

	server := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(server, logger)
	waitForStopSignal()
	return shutdown(server)
}

func newLogger(env string) zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "gateway").Logger()
	if env == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

func listenAndServe(server *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", server.Addr).Msg("gateway listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
