package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := migrate(a.db); err != nil {
			return err
		}
		a.logger.Info("Schema migrated", zap.Int("models", len(entity.AllModels())))
		return nil
	},
}
