// privchat - a private terminal chat client for local LLMs.
//
// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/privchat/privchat-tui/internal/config"
	"github.com/privchat/privchat-tui/internal/events"
	"github.com/privchat/privchat-tui/internal/ollama"
	"github.com/privchat/privchat-tui/internal/tasks"
	"github.com/privchat/privchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagConfig string
	flagModel  string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:   "privchat",
		Short: "Private chat with local language models",
		Long: "privchat is a terminal chat client for models running on a local\n" +
			"Ollama install. Nothing leaves the machine.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	root.Flags().StringVarP(&flagConfig, "config", "c", "", "config file path (default ~/.privchat/config.toml)")
	root.Flags().StringVarP(&flagModel, "model", "m", "", "model to select at startup")
	root.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagModel != "" {
		cfg.DefaultModel = flagModel
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().
		Str("version", Version).
		Str("model", cfg.DefaultModel).
		Msg("starting")

	backend := ollama.NewBackend(cfg.Backend.Command, cfg.Backend.URL)
	ch := events.NewChannel()
	sup := tasks.NewSupervisor(backend, ch, log)
	sup.SetTimeouts(
		secondsDuration(cfg.Backend.ProbeTimeoutSecs),
		secondsDuration(cfg.Backend.StartupTimeoutSecs),
	)

	view := chat.New(cfg, sup, ch, log)
	p := tea.NewProgram(view, tea.WithAltScreen())

	watcher := startConfigWatcher(cfg, p, log)
	if watcher != nil {
		defer watcher.Close()
	}

	_, err = p.Run()
	sup.CancelAll()
	if err != nil {
		log.Error().Err(err).Msg("ui stopped")
		return err
	}
	log.Info().Msg("bye")
	return nil
}

// newLogger opens the file logger. The TUI owns the terminal, so logs
// never go to stderr while it runs.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	path := cfg.Log.Path
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		path = filepath.Join(dir, "privchat.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err == nil {
		level = parsed
	}
	if flagDebug {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}

// startConfigWatcher reloads the config file on change and forwards
// the result into the UI loop. Watch failures are not fatal.
func startConfigWatcher(cfg *config.Config, p *tea.Program, log zerolog.Logger) *config.Watcher {
	path := flagConfig
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil
		}
	}

	watcher, err := config.NewWatcher(path, func(reloaded *config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		log.Info().Msg("config reloaded")
		p.Send(chat.ConfigReloadedMsg{Config: reloaded})
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		return nil
	}
	if err := watcher.Watch(); err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		watcher.Close()
		return nil
	}
	return watcher
}

func secondsDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}
