package config

import (
	"log"
	"os"
	"strconv"
)

// Config carries the process configuration.  Required values abort
// startup when missing; tunables fall back to the reservation defaults.
type Config struct {
	Env          string
	Port         string
	JWTSecret    string
	AdminKeyHash string // bcrypt hash of the admin API key

	StoreBackend string // "memory" or "mysql"
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string

	SeatMapCapacity int
	HoldLengthSecs  int64
	HoldTokenLen    int
	AccessTTLMin    int
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		JWTSecret:    must("JWT_SECRET"),
		AdminKeyHash: must("ADMIN_KEY_HASH"),

		StoreBackend: optional("STORE_BACKEND", "memory"),

		SeatMapCapacity: optionalInt("SEATMAP_CAPACITY", 16384),
		HoldLengthSecs:  int64(optionalInt("HOLD_LENGTH_SECS", 300)),
		HoldTokenLen:    optionalInt("HOLD_TOKEN_LEN", 32),
		AccessTTLMin:    optionalInt("ACCESS_TOKEN_TTL_MIN", 60),
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func optional(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func optionalInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
