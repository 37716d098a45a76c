package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/educhat/internal/app"
	"github.com/capitalize-ai/educhat/internal/config"
	"github.com/capitalize-ai/educhat/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "educhat",
	Short: "EduChat is a course tutor for the Databases course",
	Long: `EduChat answers course logistics, explains concepts from the course
material and generates practice questions.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")
}

// setup loads configuration and a logger writing to stderr so stdout
// stays free for the conversation.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg := config.Load()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	log, err := logger.NewWithOutput(cfg.LogLevel, "stderr")
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetGlobal(log)
	return cfg, log, nil
}

// openApp wires the application for a command.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}
