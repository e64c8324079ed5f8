// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMoA/pkg/config"
	"github.com/AleutianAI/AleutianMoA/pkg/logging"
	"github.com/AleutianAI/AleutianMoA/services/orchestrator"
	"github.com/AleutianAI/AleutianMoA/services/server"
)

var (
	configPath string
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "moa",
		Short: "A local mixture-of-agents assistant for small models",
		Long: `moa routes requests across specialized small-model agents:
deterministic tools, parallel research, writing and document generation,
with translation for non-English input.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			return err
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [goal]",
		Short: "Execute a single request and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			reply, err := orch.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printReply(reply)
			return nil
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runChatLoop(ctx, orch)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a moa.yaml config file (defaults apply when omitted)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
}

// buildOrchestrator wires an in-process orchestrator from the loaded
// config. The returned cleanup closes the log file and backing stores.
func buildOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "moa",
		JSON:    cfg.Logging.JSON,
		Quiet:   !cfg.Logging.JSON,
	})

	orch, closeDeps, err := server.NewOrchestrator(context.Background(), cfg,
		nil, logger.Slog())
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	cleanup := func() {
		closeDeps()
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "log close error: %v\n", err)
		}
	}
	return orch, cleanup, nil
}

func runChatLoop(ctx context.Context, orch *orchestrator.Orchestrator) error {
	fmt.Println("Entering chat. Type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print(prompt("You> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := orch.Run(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printReply(reply)
	}
}
