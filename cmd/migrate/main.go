package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/config"
	"github.com/contactlearncert-blip/prospection/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [command]

Commands:
  (default)   apply pending migrations
  down        revert the most recently applied migration
  status      list migrations and whether they are applied
  reset       drop everything and load the consolidated schema
  fresh       drop everything and apply every migration in order`)
	os.Exit(1)
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if cfg.UsesSQLite() {
		slog.Info("sqlite database creates its schema on open; nothing to migrate", "path", cfg.SQLitePath())
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	dir := findMigrationDir()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "":
		runIncremental(ctx, pool, dir)
	case "down":
		runDown(ctx, pool, dir)
	case "status":
		runStatus(ctx, pool, dir)
	case "reset":
		runScript(ctx, pool, dir, "000_drop_all.sql")
		runConsolidated(ctx, pool, dir)
	case "fresh":
		runScript(ctx, pool, dir, "000_drop_all.sql")
		runIncremental(ctx, pool, dir)
	default:
		usage()
	}
}

func findMigrationDir() string {
	dir := "migrations"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = "../migrations"
	}
	return dir
}

// migrationFiles returns the sorted file names in dir ending with suffix.
func migrationFiles(dir, suffix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Fatal("read migrations dir failed", "error", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files
}

func ensureSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		logging.Fatal("create schema_migrations failed", "error", err)
	}
}

func isApplied(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var exists bool
	_ = pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name=$1)", name).Scan(&exists)
	return exists
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, string(sql))
	return err
}

func runIncremental(ctx context.Context, pool *pgxpool.Pool, dir string) {
	ensureSchemaMigrations(ctx, pool)

	applied := 0
	for _, filename := range migrationFiles(dir, ".up.sql") {
		name := strings.TrimSuffix(filename, ".up.sql")
		if isApplied(ctx, pool, name) {
			continue
		}
		if err := execFile(ctx, pool, filepath.Join(dir, filename)); err != nil {
			logging.Fatal("migration failed", "migration", name, "error", err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			logging.Fatal("record migration failed", "migration", name, "error", err)
		}
		applied++
		slog.Info("migration applied", "migration", name)
	}

	if applied == 0 {
		slog.Info("all migrations already applied")
	} else {
		slog.Info("migrations completed", "count", applied)
	}
}

func runDown(ctx context.Context, pool *pgxpool.Pool, dir string) {
	ensureSchemaMigrations(ctx, pool)

	var name string
	err := pool.QueryRow(ctx, "SELECT name FROM schema_migrations ORDER BY name DESC LIMIT 1").Scan(&name)
	if err != nil {
		slog.Info("no migration to revert")
		return
	}
	if err := execFile(ctx, pool, filepath.Join(dir, name+".down.sql")); err != nil {
		logging.Fatal("revert failed", "migration", name, "error", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM schema_migrations WHERE name=$1", name); err != nil {
		logging.Fatal("unrecord migration failed", "migration", name, "error", err)
	}
	slog.Info("migration reverted", "migration", name)
}

func runStatus(ctx context.Context, pool *pgxpool.Pool, dir string) {
	ensureSchemaMigrations(ctx, pool)
	for _, filename := range migrationFiles(dir, ".up.sql") {
		name := strings.TrimSuffix(filename, ".up.sql")
		state := "pending"
		if isApplied(ctx, pool, name) {
			state = "applied"
		}
		fmt.Printf("%-8s %s\n", state, name)
	}
}

func runScript(ctx context.Context, pool *pgxpool.Pool, dir, filename string) {
	slog.Info("running script", "file", filename)
	if err := execFile(ctx, pool, filepath.Join(dir, filename)); err != nil {
		logging.Fatal("script failed", "file", filename, "error", err)
	}
}

// runConsolidated loads the single-file schema and marks every migration applied.
func runConsolidated(ctx context.Context, pool *pgxpool.Pool, dir string) {
	runScript(ctx, pool, dir, "000_consolidated.sql")

	ensureSchemaMigrations(ctx, pool)
	upFiles := migrationFiles(dir, ".up.sql")
	for _, filename := range upFiles {
		name := strings.TrimSuffix(filename, ".up.sql")
		_, _ = pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
	}
	slog.Info("consolidated schema applied", "migrations_marked", len(upFiles))
}
