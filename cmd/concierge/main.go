// Copyright 2025 Kadir Pekel
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

// Command concierge runs the conversational shopping service.
//
// Usage:
//
//	concierge serve --config config.yaml
//	concierge chat
//	concierge version
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/kadirpekel/concierge/pkg/config"
	"github.com/kadirpekel/concierge/pkg/logger"
	"github.com/kadirpekel/concierge/pkg/observability"
	"github.com/kadirpekel/concierge/pkg/orchestrator"
	"github.com/kadirpekel/concierge/pkg/runtime"
	"github.com/kadirpekel/concierge/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP chat service."`
	Chat    ChatCmd    `cmd:"" help:"Chat with the concierge from the terminal."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("concierge version %s\n", version)
	return nil
}

// ServeCmd starts the HTTP service.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var serverOpts []server.Option
	if cfg.Observability.Enabled {
		obs := observability.NewManager(observability.Config{
			Enabled:       true,
			ServiceName:   cfg.Observability.ServiceName,
			TraceExporter: cfg.Observability.TraceExporter,
			MetricsPath:   cfg.Observability.MetricsPath,
		})
		if err := obs.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		defer func() {
			if err := obs.Shutdown(context.Background()); err != nil {
				slog.Warn("Observability shutdown failed", "error", err)
			}
		}()
		serverOpts = append(serverOpts, server.WithObservability(obs))
	}

	srv := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, rt.Orchestrator, rt.Dispatcher, serverOpts...)

	fmt.Printf("\nConcierge ready on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   Chat:    POST /v1/chat\n")
	fmt.Printf("   Health:  GET  /health\n")
	if cfg.Observability.Enabled {
		fmt.Printf("   Metrics: GET  %s\n", cfg.Observability.MetricsPath)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// ChatCmd is an interactive terminal session against an in-process
// orchestrator. Useful for demos and debugging without the HTTP layer.
type ChatCmd struct {
	SessionID string `help:"Resume an existing session id."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	sessionID := c.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fmt.Printf("Session %s. Type a message, or \"exit\" to quit.\n\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result := rt.Orchestrator.HandleTurn(ctx, orchestrator.TurnRequest{
			SessionID: sessionID,
			Message:   line,
		})
		printResult(result)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func printResult(result *orchestrator.TurnResult) {
	if result.Error != nil {
		fmt.Printf("[%s] %s\n", result.Error.Code, result.Message)
		return
	}
	fmt.Println(result.Message)
	for _, row := range result.Rows {
		fmt.Printf("\n  %s\n", row.Label)
		for _, item := range row.Items {
			fmt.Printf("    - %s (%s) $%.2f  [%s]\n", item.Name, item.Brand, float64(item.Price)/100, item.ID)
		}
	}
	if len(result.QuickReplies) > 0 {
		fmt.Printf("\n  (%s)\n", strings.Join(result.QuickReplies, " | "))
	}
	fmt.Println()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		os.Setenv("CONFIG_FILE", path)
	}
	return config.FromEnv()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()
	return ctx, cancel
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("concierge"),
		kong.Description("Conversational product recommendation service"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
