package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBDSN          string
	LogFile        string
	ReservationTTL time.Duration
	CartTTL        time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DBDSN:          getenv("DB_DSN", "stockroom.db"), // sqlite file in project root
		LogFile:        getenv("LOG_FILE", "./stockroom.log"),
		ReservationTTL: minutes("RESERVATION_TTL_MIN", 30),
		CartTTL:        minutes("CART_TTL_MIN", 30),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s RESERVATION_TTL=%s CART_TTL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.ReservationTTL, cfg.CartTTL)
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func minutes(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
		log.Printf("[config] ignoring invalid %s=%q", k, v)
	}
	return time.Duration(def) * time.Minute
}
