package main

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env then .env.local. Values already present in the
// process environment win, so container or CI settings are never clobbered.
func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// migrationsDir resolves the goose migrations directory. The default matches
// the checked-in db/migrations tree; MIGRATIONS_DIR points elsewhere when
// running from outside the repo root.
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// migrationsTable resolves the goose version table name, so several services
// can share one database without clashing on migration bookkeeping.
func migrationsTable() string {
	if v := os.Getenv("MIGRATIONS_TABLE"); v != "" {
		return v
	}
	return "goose_db_version"
}
