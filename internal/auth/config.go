package auth

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Secret    string
	AccessTTL time.Duration
	// RefreshGrace is how long after expiry a token may still be exchanged.
	RefreshGrace time.Duration
}

// ConfigFromEnv reads SECRET_KEY, ACCESS_TOKEN_EXPIRE_MINUTES and REFRESH_GRACE_HOURS.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret:       os.Getenv("SECRET_KEY"),
		AccessTTL:    30 * time.Minute,
		RefreshGrace: 7 * 24 * time.Hour,
	}
	if v, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES")); err == nil && v > 0 {
		cfg.AccessTTL = time.Duration(v) * time.Minute
	}
	if v, err := strconv.Atoi(os.Getenv("REFRESH_GRACE_HOURS")); err == nil && v >= 0 {
		cfg.RefreshGrace = time.Duration(v) * time.Hour
	}
	return cfg
}
