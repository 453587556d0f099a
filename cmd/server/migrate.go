package main

import (
	"errors"

	"github.com/spf13/cobra"

	"idvgate/internal/platform/config"
	"idvgate/internal/platform/logger"
	profilestore "idvgate/internal/profile/store"
	"idvgate/pkg/platform/tx"
)

func newMigrateCmd(cfg *config.Server) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the subject verification table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required for migrate")
			}
			log := logger.New(cfg.Debug)
			ctx := cmd.Context()

			db, err := openDB(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			store := profilestore.NewPostgres(db)
			if err := tx.RunInTx(ctx, db, store.Migrate); err != nil {
				return err
			}
			log.Info("migration applied")
			return nil
		},
	}
}
