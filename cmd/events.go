/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/focusboard/apiserver/config"
	"github.com/focusboard/apiserver/internal/events"
	"github.com/focusboard/apiserver/internal/logger"
	"github.com/focusboard/apiserver/internal/mq"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume domain events and log them",
	Long: `Subscribes to the events topic and logs every domain event
(user.registered, task.completed, pomodoro.completed) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.NewDefault(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.Queue)
		if err != nil {
			return fmt.Errorf("open queue: %w", err)
		}
		defer backend.Close()

		err = events.Consume(ctx, backend, cfg.Queue.EventsTopic, log, events.LogHandler(log))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
