// Package config reads settings from the environment (and a .env file,
// when present) into typed structs.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Client configures the todo client.
type Client struct {
	Backend string `env:"TODO_BACKEND" env-default:"remote" env-description:"remote or local"`
	API     API
	Local   Local
	Log     Log
	Theme   string `env:"TODO_THEME" env-default:"classic" env-description:"classic, neon or mono"`
}

type API struct {
	URL     string        `env:"TODO_API_URL" env-description:"backend base URL"`
	Key     string        `env:"TODO_API_KEY" env-description:"API key; falls back to stored credentials"`
	Table   string        `env:"TODO_TABLE" env-default:"todos"`
	Bucket  string        `env:"TODO_BUCKET" env-default:"images"`
	Timeout time.Duration `env:"TODO_API_TIMEOUT" env-default:"15s"`
}

type Local struct {
	Dir string `env:"TODO_DATA_DIR" env-default:"." env-description:"offline data directory"`
}

type Log struct {
	File       string `env:"TODO_LOG_FILE" env-description:"rotate logs into this file instead of stderr"`
	Level      string `env:"TODO_LOG_LEVEL" env-default:"info"`
	MaxSizeMB  int    `env:"TODO_LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `env:"TODO_LOG_MAX_BACKUPS" env-default:"3"`
}

// Server configures the backend.
type Server struct {
	Addr          string        `env:"TODO_SERVER_ADDR" env-default:":8080"`
	PublicURL     string        `env:"TODO_SERVER_PUBLIC_URL" env-default:"http://localhost:8080"`
	DBPath        string        `env:"TODO_SERVER_DB" env-default:"data/todos.db"`
	BlobDir       string        `env:"TODO_SERVER_BLOB_DIR" env-default:"data/blobs"`
	Table         string        `env:"TODO_TABLE" env-default:"todos"`
	Bucket        string        `env:"TODO_BUCKET" env-default:"images"`
	JWTSecret     string        `env:"TODO_JWT_SECRET" env-required:"true"`
	MaxUploadMB   int64         `env:"TODO_SERVER_MAX_UPLOAD_MB" env-default:"5"`
	ShutdownAfter time.Duration `env:"TODO_SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	Log           Log
}

// ReadClient reads the client settings and checks them.
func ReadClient() (*Client, error) {
	cfg := new(Client)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) Validate() error {
	switch c.Backend {
	case BackendRemote, BackendLocal:
	default:
		return fmt.Errorf("TODO_BACKEND: unknown backend %q", c.Backend)
	}
	return nil
}

// ReadServer reads the backend settings.
func ReadServer() (*Server, error) {
	cfg := new(Server)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Usage describes every client variable, for help output.
func Usage() string {
	s, err := cleanenv.GetDescription(new(Client), nil)
	if err != nil {
		return ""
	}
	return s
}
