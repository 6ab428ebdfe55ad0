package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/auth"
	"github.com/hersh/stackrush/internal/config"
	"github.com/hersh/stackrush/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadServer(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackrush-server: %v\n", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackrush-server: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Server, log *zap.Logger) error {
	tokens, err := auth.NewSigner(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	hub := server.NewHub(server.HubConfig{
		Countdown:       cfg.Countdown,
		DisconnectGrace: cfg.DisconnectGrace,
		Logger:          log,
		Tokens:          tokens,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		hub.Shutdown()
		return err
	case <-done:
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(ctx)
	hub.Shutdown()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
