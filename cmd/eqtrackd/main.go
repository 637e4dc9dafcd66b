package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/sideindex"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "eqtrackd",
		Short:         "Equipment inventory and inspection tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(resetCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml" // Default path for local development
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eqtrackd %s (%s)\n", version, commit)
		},
	}
}

// app bundles the dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	store   store.Store
	storage *upload.Storage
	index   *sideindex.Index
}

func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", zap.String("path", configPath))
	metrics.BuildInfo.WithLabelValues(version, commit).Set(1)

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	storage := upload.NewStorage(cfg.Storage.UploadRoot)
	if err := storage.Init(); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     logger,
		db:      gormDB,
		store:   store.NewGormStore(gormDB),
		storage: storage,
		index:   sideindex.New(cfg.Storage.SideIndexPath),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.log.Sync()
}
