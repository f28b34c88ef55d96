package env

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

func GetString(key, fallback string) string {
	value, ok := os.LookupEnv(key)

	if !ok {
		log.Printf("%s not found, defaulting to %s", key, fallback)
		return fallback
	}

	return value
}

func GetInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)

	if !ok {
		return fallback
	}

	valueAsInt, err := strconv.Atoi(value)

	if err != nil {
		return fallback
	}

	return valueAsInt
}

func GetBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)

	if !ok {
		return fallback
	}

	valueAsBool, err := strconv.ParseBool(value)

	if err != nil {
		return fallback
	}

	return valueAsBool
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)

	if !ok {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("%s has invalid duration %q, defaulting to %s", key, value, fallback)
		return fallback
	}

	return duration
}

// GetBytes reads a human readable size such as "10MB" or "512kB".
// Decimal units are used (1MB = 1000000 bytes), matching the platform's own limits.
func GetBytes(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)

	if !ok {
		return fallback
	}

	size, err := units.FromHumanSize(value)
	if err != nil || size <= 0 {
		log.Printf("%s has invalid size %q, defaulting to %s", key, value, units.HumanSize(float64(fallback)))
		return fallback
	}

	return size
}

// GetStringSlice splits a comma separated value, dropping empty items.
func GetStringSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)

	if !ok {
		return fallback
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
