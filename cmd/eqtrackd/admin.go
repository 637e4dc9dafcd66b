package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/registry"
)

func migrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if seed {
				if err := db.Seed(cmd.Context(), a.db, a.cfg.Auth.SeedUsers, a.log); err != nil {
					return fmt.Errorf("failed to seed database: %w", err)
				}
			}
			a.log.Info("migrations applied", zap.Bool("seeded", seed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "insert equipment types and configured users")
	return cmd
}

func resetCmd(configPath *string) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every case scene, room, equipment unit, record and stored file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to reset without --yes")
			}
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			reg := registry.NewService(a.store, a.storage, a.index, a.log)
			if err := reg.Reset(cmd.Context()); err != nil {
				return err
			}
			a.log.Warn("system reset from the command line")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the reset")
	return cmd
}
