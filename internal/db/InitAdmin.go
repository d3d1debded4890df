package db

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/quebracell/backend/internal/config"
)

// InitAdmin makes sure the single designated operator account exists.
func InitAdmin(database *Database, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}

	var count int
	err := database.ExecQueryRow(context.Background(), "SELECT COUNT(*) FROM users WHERE email = $1", cfg.AdminEmail).Scan(&count)
	if err != nil {
		log.Fatal(err)
	}

	if count == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}
		_, err = database.Exec(context.Background(), "INSERT INTO users (id, email, password) VALUES (gen_random_uuid(), $1, $2)", cfg.AdminEmail, string(hashed))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Admin user created successfully.")
	} else {
		fmt.Println("Admin user already exists.")
	}
}
