package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/logger"
	"github.com/importfull/inventory-api/internal/queue"
)

var consumeEventsCmd = &cobra.Command{
	Use:   "consume-events",
	Short: "Append catalog webhook events from RabbitMQ to a log file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.RabbitURL == "" {
			return errors.New("RABBITMQ_URL is not set")
		}
		log, err := logger.New(cfg.Env, cfg.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		logPath, _ := cmd.Flags().GetString("log-file")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := &queue.Consumer{URL: cfg.RabbitURL, LogPath: logPath, Log: log}
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	consumeEventsCmd.Flags().String("log-file", "logs/catalog_events.log", "file the events are appended to")
}
