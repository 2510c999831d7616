package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/KAsare1/subscriptions-server/cmd/api"
	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/cmd/utils"
	"github.com/KAsare1/subscriptions-server/config"
	"github.com/KAsare1/subscriptions-server/db"
	"github.com/KAsare1/subscriptions-server/service/subscription"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoEmail = "demo@example.com"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subscriptions-server",
		Short:         "Subscription tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(startServer)
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the HTTP API. Tables are migrated and the DEMO_USER_ID owner row is created first, so a fresh database accepts writes without running seed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(startServer)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(runMigrations)
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo user and sample subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(runSeed)
		},
	}

	var yes bool
	var tableNames string
	clearDB := &cobra.Command{
		Use:   "clear-db",
		Short: "Drop database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *app) error {
				return runDatabaseClear(app, yes, tableNames)
			})
		},
	}
	clearDB.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	clearDB.Flags().StringVar(&tableNames, "tables", "", "comma separated tables to drop (User, Subscription); empty drops all")

	root.AddCommand(serve, migrate, seed, clearDB)
	return root
}

type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

// withApp opens the process-wide database handle, runs fn and always closes it.
func withApp(fn func(*app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := utils.NewLogger(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	DB, err := db.NewStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}
	defer func() {
		if err := db.Close(DB); err != nil {
			log.Error("closing database", zap.Error(err))
			return
		}
		log.Info("database connection closed")
	}()
	log.Info("connected to the database", zap.String("driver", cfg.DBDriver))

	return fn(&app{cfg: cfg, log: log, db: DB})
}

func runMigrations(a *app) error {
	a.log.Info("starting database migrations")
	if err := db.Migrate(a.db, a.log); err != nil {
		return err
	}
	a.log.Info("migrations completed successfully")
	return nil
}

func runSeed(a *app) error {
	if err := db.Migrate(a.db, a.log); err != nil {
		return err
	}
	n, err := subscription.Seed(context.Background(), a.db, a.log, a.cfg.DemoUserID, demoEmail)
	if err != nil {
		return err
	}
	a.log.Info("seeding completed", zap.Int("created", n))
	return nil
}

func startServer(a *app) error {
	if err := db.Migrate(a.db, a.log); err != nil {
		return err
	}
	if err := subscription.EnsureOwner(context.Background(), a.db, a.log, a.cfg.DemoUserID, demoEmail); err != nil {
		return err
	}

	server := api.NewApiServer(a.cfg, a.db, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func runDatabaseClear(a *app, yes bool, tableNames string) error {
	if !yes {
		fmt.Print("Are you sure you want to clear the database? (yes/no): ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			a.log.Info("database clearing cancelled")
			return nil
		}
	}

	var tables []interface{}
	for _, name := range splitTableNames(tableNames) {
		switch name {
		case "User":
			tables = append(tables, &models.User{})
		case "Subscription":
			tables = append(tables, &models.Subscription{})
		default:
			return fmt.Errorf("unknown table: %s", name)
		}
	}

	if err := db.Drop(a.db, a.log, tables); err != nil {
		return err
	}
	a.log.Info("database cleared successfully")
	return nil
}

func splitTableNames(tableNames string) []string {
	var names []string
	for _, name := range strings.Split(tableNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
