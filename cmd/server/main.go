package main

import (
	"context"
	"fmt"
	"os"

	"bac-tracker/internal/config"
	"bac-tracker/internal/database"
	"bac-tracker/internal/handlers"
	"bac-tracker/internal/memstore"
	"bac-tracker/internal/server"
	"bac-tracker/internal/service"
	"bac-tracker/internal/store"
	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "bac-tracker",
	Short:        "Procurement stage tracking service",
	Long:         `Tracks procurement projects through Purchase Request, RFQ, Abstract of Quotation, Purchase Order, Notice of Award and Notice to Proceed.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := setup(cmd.Context())
		if err != nil {
			return err
		}

		var st store.Store = database.NewStore(db)
		if cfg.WorkflowStore == config.StoreMemory {
			mem, err := memstore.New()
			if err != nil {
				return err
			}
			log.Warn("projects are kept in memory and are lost on restart")
			st = mem
		}

		engine := workflow.NewEngine(workflow.WithLocation(cfg.Location))
		svc := service.New(st, engine, log.Named("workflow"))
		accounts := database.NewAccounts(db)
		directory := database.NewDirectory(db)

		if cfg.LogLevel > hclog.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		r := server.NewRouter(server.Deps{
			SessionSecret: cfg.SessionSecret,
			Handlers:      handlers.New(svc, accounts, directory),
			Users:         accounts,
			Offices:       directory,
			Logger:        log,
		})

		addr := fmt.Sprintf(":%s", cfg.ServerPort)
		log.Info("starting server", "addr", addr)
		return r.Run(addr)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and seed offices and the default admin, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		log.Info("migration finished")
		return nil
	},
}

// setup loads config, connects, migrates and seeds.
func setup(ctx context.Context) (*config.Config, hclog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	log := cfg.NewLogger()

	db, err := database.Open(database.OpenOptions{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Logger: log.Named("db"),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, err
	}

	if cfg.OfficesFile != "" {
		names, err := database.LoadOfficesFile(cfg.OfficesFile)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.SeedOffices(ctx, db, names, log.Named("seed")); err != nil {
			return nil, nil, nil, err
		}
	}
	err = database.EnsureAdmin(ctx, db, database.AdminSeed{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Office:   cfg.AdminOffice,
	}, log.Named("seed"))
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, log, db, nil
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
