package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func load() {
	loadOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

func Config(key string) string {
	load()
	return os.Getenv(key)
}

func Get(key, fallback string) string {
	if val := Config(key); val != "" {
		return val
	}
	return fallback
}

func Int(key string, fallback int) int {
	if val := Config(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func Float(key string, fallback float64) float64 {
	if val := Config(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// Duration accepts Go duration strings ("5s") or, under KEY_SECONDS, a plain
// number of seconds.
func Duration(key string, fallback time.Duration) time.Duration {
	if val := Config(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := Config(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Location is the timezone used to decide what "today" means for bookings.
func Location() *time.Location {
	name := Get("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️ Unknown TIMEZONE %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}
