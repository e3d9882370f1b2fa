package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/database"
	"github.com/importfull/inventory-api/internal/logger"
	"github.com/importfull/inventory-api/internal/repository"
	"github.com/importfull/inventory-api/internal/service"
)

// bootDB loads config and opens the database connection.
func bootDB() (config.Config, *sqlx.DB, error) {
	cfg := config.Load()
	db, err := database.Open(cfg.DB)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootDB()
		if err != nil {
			return err
		}
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Println("schema is up to date")
		return nil
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user (the password is read from INVENTORY_PASSWORD when --password is empty)",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")
		if password == "" {
			password = os.Getenv("INVENTORY_PASSWORD")
		}

		cfg, db, err := bootDB()
		if err != nil {
			return err
		}
		defer db.Close()
		log, err := logger.New(cfg.Env, cfg.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		auth, err := service.NewAuthService(cfg, repository.NewUserRepo(db), log)
		if err != nil {
			return err
		}
		u, err := auth.Register(ctx, username, password, role)
		if err != nil {
			return err
		}
		log.Info("user created", zap.String("username", u.Username), zap.String("role", u.Role), zap.Int64("id", u.ID))
		return nil
	},
}

func init() {
	createUserCmd.Flags().String("username", "", "login name")
	createUserCmd.Flags().String("password", "", "plain-text password")
	createUserCmd.Flags().String("role", "user", "user or admin")
	_ = createUserCmd.MarkFlagRequired("username")
}
