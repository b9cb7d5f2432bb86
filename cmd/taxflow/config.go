package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasmbraga/taxflow"
	"github.com/lucasmbraga/taxflow/internal/adapters/file"
	"github.com/lucasmbraga/taxflow/internal/gateway/rio"
	"github.com/lucasmbraga/taxflow/internal/intercept"
	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/pkg/adapters/memory"
	redisstore "github.com/lucasmbraga/taxflow/pkg/adapters/redis"
	"github.com/lucasmbraga/taxflow/pkg/persistence/middleware"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// Config is the YAML server configuration. Every field has a working
// default so the binary runs without a config file.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	Store struct {
		Backend string `yaml:"backend"` // memory, file or redis
		Path    string `yaml:"path"`    // file backend directory

		// Sanitize masks the owner name and drops slip documents before
		// anything is written to the backend.
		Sanitize bool `yaml:"sanitize"`

		// EncryptionKey encrypts session data at rest (base64, 32 bytes).
		// FallbackKeys accepts old keys during rotation.
		EncryptionKey string   `yaml:"encryption_key"`
		FallbackKeys  []string `yaml:"encryption_fallback_keys"`

		Redis struct {
			Addr     string        `yaml:"addr"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			Prefix   string        `yaml:"prefix"`
			TTL      time.Duration `yaml:"ttl"`
			Lock     bool          `yaml:"lock"` // distributed session locking
		} `yaml:"redis"`
	} `yaml:"store"`

	Gateway struct {
		Mode    string        `yaml:"mode"` // fake or live
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gateway"`

	Reporter struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"reporter"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Listen = ":8080"
	cfg.LogLevel = "info"
	cfg.Store.Backend = "memory"
	cfg.Store.Path = ".taxflow/sessions"
	cfg.Store.Redis.Addr = "localhost:6379"
	cfg.Gateway.Mode = "fake"
	return cfg
}

// loadConfig reads the config file named by --config (when given) over the
// defaults, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg := defaultConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if store, _ := cmd.Flags().GetString("store"); store != "" {
		cfg.Store.Backend = store
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// buildEngine assembles the engine from the configuration. The returned
// cleanup function closes backend connections.
func buildEngine(cfg Config) (*taxflow.Engine, *slog.Logger, func(), error) {
	logger := logging.New(parseLogLevel(cfg.LogLevel))
	cleanup := func() {}

	opts := []taxflow.Option{taxflow.WithLogger(logger)}

	var store ports.StateStore
	switch cfg.Store.Backend {
	case "memory", "":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Store.Path)
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		storeOpts := []redisstore.Option{}
		if cfg.Store.Redis.Prefix != "" {
			storeOpts = append(storeOpts, redisstore.WithPrefix(cfg.Store.Redis.Prefix))
		}
		if cfg.Store.Redis.TTL > 0 {
			storeOpts = append(storeOpts, redisstore.WithTTL(cfg.Store.Redis.TTL))
		}
		store = redisstore.NewFromClient(client, storeOpts...)
		if cfg.Store.Redis.Lock {
			opts = append(opts, taxflow.WithLocker(redisstore.NewLocker(client, "taxflow:lock:")))
		}
		cleanup = func() { client.Close() }
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q (memory, file or redis)", cfg.Store.Backend)
	}

	store, err := wrapStore(cfg, store)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, taxflow.WithStore(store))

	switch cfg.Gateway.Mode {
	case "fake", "":
	case "live":
		if cfg.Gateway.BaseURL == "" {
			return nil, nil, nil, fmt.Errorf("gateway.base_url is required for the live gateway")
		}
		rioOpts := []rio.Option{rio.WithLogger(logger)}
		if cfg.Gateway.Timeout > 0 {
			rioOpts = append(rioOpts, rio.WithHTTPClient(&http.Client{Timeout: cfg.Gateway.Timeout}))
		}
		opts = append(opts, taxflow.WithGateway(rio.New(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, rioOpts...)))
	default:
		return nil, nil, nil, fmt.Errorf("unknown gateway mode %q (fake or live)", cfg.Gateway.Mode)
	}

	if cfg.Reporter.URL != "" {
		opts = append(opts, taxflow.WithReporter(intercept.NewWebhookReporter(cfg.Reporter.URL, cfg.Reporter.APIKey)))
	}

	return taxflow.New(opts...), logger, cleanup, nil
}

// wrapStore applies the configured store middleware: sanitizing first, then
// encryption, so ciphertext is what reaches the backend.
func wrapStore(cfg Config, store ports.StateStore) (ports.StateStore, error) {
	var mws []middleware.Middleware

	if cfg.Store.Sanitize {
		mws = append(mws, middleware.NewSanitizerMiddleware())
	}

	if cfg.Store.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Store.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decode store.encryption_key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("store.encryption_key must be 32 bytes, got %d", len(key))
		}
		fallbacks := make([][]byte, 0, len(cfg.Store.FallbackKeys))
		for i, fk := range cfg.Store.FallbackKeys {
			decoded, err := base64.StdEncoding.DecodeString(fk)
			if err != nil {
				return nil, fmt.Errorf("decode store.encryption_fallback_keys[%d]: %w", i, err)
			}
			fallbacks = append(fallbacks, decoded)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    key,
			FallbackKeys: fallbacks,
		}))
	}

	if len(mws) == 0 {
		return store, nil
	}
	return middleware.Chain(store, mws...), nil
}
