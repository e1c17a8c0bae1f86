/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/focusboard/apiserver/config"
	"github.com/focusboard/apiserver/internal/db"
	"github.com/focusboard/apiserver/internal/logger"
	"github.com/focusboard/apiserver/internal/services"
	"github.com/focusboard/apiserver/internal/storage"
	"github.com/focusboard/apiserver/internal/store"
)

// backupCmd represents the backup command.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export users, tasks and sessions to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.NewDefault(cfg.LogLevel)
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer objects.Close()

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		key, err := services.NewBackupService(store.NewBackupReader(dbConn), objects).Export(ctx)
		if err != nil {
			return err
		}

		log.Info("backup written", slog.String("bucket", objects.Bucket()), slog.String("key", key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
