// Package vaultsecrets resolves the Postgres DSN and Redis password from
// HashiCorp Vault when enabled, falling back to the static config values
// when Vault is disabled or a lookup fails.
package vaultsecrets

import (
	"context"
	"fmt"
	"sync"

	"backtest-engine/config"

	"github.com/hashicorp/vault/api"
)

// DBCredentials are the fields a Postgres DSN is built from.
type DBCredentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisCredentials holds the Redis auth secret.
type RedisCredentials struct {
	Password string `json:"password"`
}

// Client wraps the HashiCorp Vault client with an in-memory cache so
// repeated lookups through the same Client don't re-hit Vault.
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu    sync.RWMutex
	cache map[string]interface{}
}

// NewClient creates a new vault-backed secrets client. When cfg.Enabled is
// false it returns a client that always falls back to the caller-supplied
// defaults — useful for local development and tests.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg, cache: make(map[string]interface{})}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg, cache: make(map[string]interface{})}, nil
}

// DatabaseDSN resolves the Postgres connection string, preferring Vault
// when enabled and falling back to the defaults on any lookup failure.
func (c *Client) DatabaseDSN(ctx context.Context, defaults config.DatabaseConfig) (string, error) {
	creds := DBCredentials{
		Host:     defaults.Host,
		Port:     defaults.Port,
		User:     defaults.User,
		Password: defaults.Password,
		Database: defaults.Database,
		SSLMode:  defaults.SSLMode,
	}

	if c.config.Enabled {
		if fetched, err := c.readDBCredentials(ctx); err == nil {
			creds = fetched
		}
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		creds.Host, creds.Port, creds.User, creds.Password, creds.Database, creds.SSLMode,
	), nil
}

// RedisPassword resolves the Redis auth password, falling back to the
// default on a disabled vault or lookup failure.
func (c *Client) RedisPassword(ctx context.Context, fallback string) string {
	if !c.config.Enabled {
		return fallback
	}

	c.mu.RLock()
	if cached, ok := c.cache["redis/password"]; ok {
		c.mu.RUnlock()
		if s, ok := cached.(string); ok {
			return s
		}
	} else {
		c.mu.RUnlock()
	}

	path := fmt.Sprintf("%s/data/%s/redis", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil || secret == nil || secret.Data == nil {
		return fallback
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return fallback
	}

	password := getString(data, "password")
	if password == "" {
		return fallback
	}

	c.mu.Lock()
	c.cache["redis/password"] = password
	c.mu.Unlock()

	return password
}

func (c *Client) readDBCredentials(ctx context.Context) (DBCredentials, error) {
	const cacheKey = "database/dsn"

	c.mu.RLock()
	if cached, ok := c.cache[cacheKey]; ok {
		c.mu.RUnlock()
		if creds, ok := cached.(DBCredentials); ok {
			return creds, nil
		}
	} else {
		c.mu.RUnlock()
	}

	path := fmt.Sprintf("%s/data/%s/database", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return DBCredentials{}, fmt.Errorf("failed to read database secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return DBCredentials{}, fmt.Errorf("database secret not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return DBCredentials{}, fmt.Errorf("invalid secret format")
	}

	creds := DBCredentials{
		Host:     getString(data, "host"),
		Port:     getInt(data, "port"),
		User:     getString(data, "user"),
		Password: getString(data, "password"),
		Database: getString(data, "database"),
		SSLMode:  getString(data, "ssl_mode"),
	}

	c.mu.Lock()
	c.cache[cacheKey] = creds
	c.mu.Unlock()

	return creds, nil
}

// Health checks the Vault connection; a no-op when Vault is disabled.
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}
