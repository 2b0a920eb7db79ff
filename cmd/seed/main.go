package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lysyi3m/cti-comb/app/cfg"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/logging"
	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/lysyi3m/cti-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logging.Setup(appCfg.Debug)

	if err := run(context.Background(), appCfg); err != nil {
		slog.Error("Seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cfg.Cfg) error {
	defs, err := source.LoadDir(c.SourcesDir)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		slog.Warn("No source definitions found", "dir", c.SourcesDir)
		return nil
	}

	dialect, dsn := database.DialectPostgres, c.PostgresDSN()
	if c.DBDriver == cfg.DriverSQLite {
		dialect, dsn = database.DialectSQLite, c.SQLitePath
	}

	db, err := database.Open(ctx, dialect, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sources := database.NewSourceStore(db)
	categories := database.NewCategoryStore(db)

	synced := 0
	for _, def := range defs {
		task := tasks.NewSyncSourceTask(def, sources, categories)
		task.Start()

		taskCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := task.Execute(taskCtx)
		cancel()
		if err != nil {
			slog.Error("Failed to seed source", "source", def.ID, "error", err)
			continue
		}
		synced++
	}

	slog.Info("Seed finished", "dir", c.SourcesDir, "synced", synced, "total", len(defs))
	if synced != len(defs) {
		return fmt.Errorf("%d of %d sources failed", len(defs)-synced, len(defs))
	}
	return nil
}
