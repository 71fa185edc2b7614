package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPageSize      = 10
	DefaultSearchCeiling = 300
	DefaultCascadeBatch  = 300
	DefaultGroupPageSize = 20
)

type Database struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Feed struct {
	// PageSize is the number of items per server page and per search reveal.
	PageSize int
	// SearchCeiling bounds how many items a filtered search reads.
	SearchCeiling int
	// GroupPageSize is the page size of the group directory.
	GroupPageSize int
}

type Config struct {
	Port           string
	JWTSecret      string
	AllowedOrigins string
	// CSRFMode is one of token, origin or off.
	CSRFMode string

	Database Database
	Redis    Redis
	Feed     Feed

	CascadeBatchSize int
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           envString("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		CSRFMode:       strings.ToLower(strings.TrimSpace(envString("CSRF_MODE", "token"))),
		Database: Database{
			Host:     envString("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     envString("DB_PORT", "5432"),
			SSLMode:  envString("DB_SSLMODE", "disable"),
		},
		Redis: Redis{
			Addr:     envString("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0, 0),
		},
		Feed: Feed{
			PageSize:      envInt("FEED_PAGE_SIZE", DefaultPageSize, 1),
			SearchCeiling: envInt("FEED_SEARCH_CEILING", DefaultSearchCeiling, 1),
			GroupPageSize: envInt("GROUP_PAGE_SIZE", DefaultGroupPageSize, 1),
		},
		CascadeBatchSize: envInt("CASCADE_BATCH_SIZE", DefaultCascadeBatch, 1),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt falls back when the variable is unset, malformed or below min.
func envInt(key string, fallback, min int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		return fallback
	}
	return v
}
