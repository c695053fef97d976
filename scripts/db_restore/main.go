package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/db"
)

func main() {
	in := flag.String("in", "", "backup file (default: <database>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	driver, dst := db.ParseDSN(cfg.DatabaseURL)
	if driver != db.DriverSQLite {
		fmt.Fprintln(os.Stderr, "Restore error: only SQLite databases are supported")
		os.Exit(1)
	}
	src := *in
	if src == "" {
		src = dst + ".bak"
	}

	srcFile, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer srcFile.Close()

	// Write next to the target and rename so a failed copy leaves the database intact.
	tmp := dst + ".restore"
	dstFile, err := os.Create(tmp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	if err := os.Rename(tmp, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database restored from %s\n", src)
}
