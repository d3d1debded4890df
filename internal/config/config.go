package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the process needs at startup. Values come
// from the environment, optionally seeded by a .env file.
type Config struct {
	HTTPPort string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	KafkaBrokers []string
	KafkaTopic   string

	// The single designated operator account. Sessions matching this
	// email resolve to the admin role; everyone else is a user.
	AdminEmail    string
	AdminPassword string

	PhotoDir     string
	PhotoBaseURL string
}

// Load reads .env from the working directory or its parents, then builds
// the config from the environment.
func Load() (*Config, error) {
	loadEnv()

	cfg := &Config{
		HTTPPort:      getenv("HTTP_PORT", "9000"),
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("POSTGRES_USER"),
		DBPassword:    os.Getenv("POSTGRES_PASSWORD"),
		DBName:        os.Getenv("POSTGRES_DB"),
		KafkaTopic:    getenv("KAFKA_TOPIC", "listing.status_changed"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		PhotoDir:      getenv("PHOTO_DIR", "uploads"),
		PhotoBaseURL:  getenv("PHOTO_BASE_URL", "/photos"),
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("config: invalid DB_PORT %q: %w", port, err)
		}
		cfg.DBPort = p
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}

// DatabaseConfigured reports whether a postgres DSN can be assembled. When
// false the process runs on the in-memory store.
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBName != ""
}

// DSN assembles the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	candidates := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
