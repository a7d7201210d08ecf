// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/logsage"
	"github.com/poiesic/logsage/config"
	"github.com/urfave/cli/v2"
)

// openService builds the Service used by ingest, ask and chat.
var openService = func(ctx context.Context, cfg *config.Config) (*logsage.Service, error) {
	return logsage.New(ctx, cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "logsage",
		Usage: "Ask questions about log files and get answers backed by cited evidence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (searched for when omitted)",
				EnvVars: []string{"LOGSAGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Vector store backend (badger, qdrant, memory)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the badger database",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Parse, chunk and embed log files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Force a log format (json, logfmt, java, syslog, plain) instead of detecting it",
					},
					&cli.IntFlag{
						Name:    "parallel",
						Aliases: []string{"p"},
						Usage:   "Number of files ingested at once",
						Value:   2,
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not report embedding progress",
					},
					outputFlag(),
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer one question from the ingested logs",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"C"},
						Usage:   "Continue an existing conversation",
					},
					outputFlag(),
				},
			},
			{
				Name:   "chat",
				Usage:  "Ask follow-up questions interactively",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "ingest",
						Aliases: []string{"i"},
						Usage:   "Ingest these files before the first question",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve (0 uses the configured default)",
					},
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"C"},
						Usage:   "Continue an existing conversation",
					},
				},
			},
			{
				Name:      "stats",
				Usage:     "Detect a file's format and summarize its entries without embedding",
				ArgsUsage: "FILE",
				Action:    statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Force a log format instead of detecting it",
					},
					outputFlag(),
				},
			},
			{
				Name:  "config",
				Usage: "Inspect or create configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration with secrets masked",
						Action: configShowCommand,
					},
					{
						Name:      "init",
						Usage:     "Write the default configuration to a file",
						ArgsUsage: "[PATH]",
						Action:    configInitCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing file",
							},
						},
					},
				},
			},
		},
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (text, json, yaml)",
		Value:   "text",
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig loads configuration and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if store := c.String("store"); store != "" {
		cfg.VectorStore = store
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withService(c *cli.Context, fn func(ctx context.Context, svc *logsage.Service) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx := c.Context
	svc, err := openService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("error closing service", "err", err)
		}
	}()
	return fn(ctx, svc)
}
