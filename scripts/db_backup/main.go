package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/db"
)

func main() {
	out := flag.String("out", "", "backup file (default: <database>.bak)")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabaseURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if database.Driver() != db.DriverSQLite {
		fmt.Fprintln(os.Stderr, "Backup error: only SQLite databases are supported; use pg_dump for Postgres")
		os.Exit(1)
	}

	dst := *out
	if dst == "" {
		_, path := db.ParseDSN(cfg.DatabaseURL)
		dst = path + ".bak"
	}
	if _, err := os.Stat(dst); err == nil {
		fmt.Fprintf(os.Stderr, "Backup error: %s already exists\n", dst)
		os.Exit(1)
	}

	// VACUUM INTO writes a consistent copy even while the server is running.
	if _, err := database.Exec(ctx, "VACUUM INTO ?", dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Backup created: %s\n", dst)
}
