// File: cmd/proxynoded/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/graph-proxy-node/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "proxynoded",
	Short: "Serves proxy-node resource-channel sessions over a Unix domain socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configPath)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "proxynoded: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, logLevel, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(logLevel))

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	cfg.Logger = logger

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("listening", zap.String("path", cfg.ListenPath))
		return srv.Run(gctx)
	})

	return group.Wait()
}
