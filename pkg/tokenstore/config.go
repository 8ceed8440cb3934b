package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend   string // file / memory / redis
	FilePath  string
	RedisAddr string
	RedisKey  string
}

// ConfigFromEnv reads TOKEN_STORE, TOKEN_FILE, REDIS_ADDR and REDIS_TOKEN_KEY.
func ConfigFromEnv() Config {
	backend := os.Getenv("TOKEN_STORE")
	if backend == "" {
		backend = "file"
	}
	path := os.Getenv("TOKEN_FILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		path = filepath.Join(home, ".finance", "token.json")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return Config{Backend: backend, FilePath: path, RedisAddr: addr, RedisKey: os.Getenv("REDIS_TOKEN_KEY")}
}

// Open builds the Store selected by cfg.Backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.FilePath), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client, cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.Backend)
	}
}
