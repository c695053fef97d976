package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
	"github.com/garnizeh/terapia/pkg/models"
)

func main() {
	adminEmail := flag.String("admin-email", "", "create an admin profile with this email")
	adminPassword := flag.String("admin-password", "", "password for the admin profile")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabaseURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	if *adminEmail != "" {
		if err := createAdmin(ctx, sqlstore.New(database, nil), *adminEmail, *adminPassword); err != nil {
			fmt.Fprintf(os.Stderr, "Admin seed error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Admin %s created.\n", *adminEmail)
	}

	fmt.Println("Database initialized successfully.")
}

// createAdmin stores an admin profile; signup never hands out that role.
func createAdmin(ctx context.Context, store *sqlstore.Store, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return fmt.Errorf("admin password must have at least 8 characters")
	}
	existing, err := store.GetProfileByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("profile %s already exists", email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.CreateProfile(ctx, &models.Profile{
		ID:           uuid.NewString(),
		Nome:         "Administrador",
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	})
}
