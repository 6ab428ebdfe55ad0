package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hersh/stackrush/internal/config"
	"github.com/hersh/stackrush/internal/netclient"
	"github.com/hersh/stackrush/internal/protocol"
	"github.com/hersh/stackrush/internal/tui"
)

const dialTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadClient(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackrush: %v\n", err)
		os.Exit(2)
	}

	// The terminal belongs to the TUI, so logs only go to a file.
	log := zap.NewNop()
	if cfg.LogFile != "" {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{cfg.LogFile}
		zc.ErrorOutputPaths = []string{cfg.LogFile}
		if log, err = zc.Build(); err != nil {
			fmt.Fprintf(os.Stderr, "stackrush: log file: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	codec, err := protocol.CodecFor(cfg.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackrush: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	client, err := netclient.Dial(ctx, cfg.DialURL(), codec, log)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to server at %s: %v\n", cfg.ServerURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (go run ./cmd/server)\n")
		os.Exit(1)
	}
	defer client.Close()

	p := tea.NewProgram(
		tui.NewModel(cfg.Name, client),
		tea.WithAltScreen(),
	)
	client.SetProgram(p)
	client.Start()

	if _, err := p.Run(); err != nil {
		log.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
