package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/logging"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("bikelegs-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var files []string
	switch os.Args[1] {
	case "up":
		files, err = migrationFiles(false)
	case "down":
		files, err = migrationFiles(true)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		slog.Info("migration applied", "file", f)
	}

	slog.Info("all migrations applied", "direction", os.Args[1], "count", len(files))
}

// migrationFiles lists NNN_name.sql files in order, or NNN_name.down.sql
// files in reverse order for down.
func migrationFiles(down bool) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, f := range all {
		if strings.HasSuffix(f, ".down.sql") == down {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	if down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}
	return files, nil
}
