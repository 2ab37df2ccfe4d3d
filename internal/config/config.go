// Package config loads and saves the YAML configuration that
// parameterizes every command in cmd/.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type BigtableConfig struct {
	ProjectID       string `yaml:"project_id"`
	InstanceName    string `yaml:"instance_name"`
	CredentialsFile string `yaml:"credentials_file"`
	ChannelSize     int    `yaml:"channel_size"`
	TimeoutSeconds  int    `yaml:"timeout"`
	MaxDecodingSize int    `yaml:"max_decoding_size"`
}

type StreamConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Token           string `yaml:"token"`
	MaxDecodingSize int    `yaml:"max_decoding_size"`
	MaxEncodingSize int    `yaml:"max_encoding_size"`
}

// Config is the full set of configuration keys the ingest and query
// commands accept.
type Config struct {
	DBURL            string         `yaml:"db_url"`
	RemoteDBURL      string         `yaml:"remotedb_url"`
	ElasticsearchURL string         `yaml:"elasticsearch_url"`
	RPCURL           string         `yaml:"rpc_url"`
	Bigtable         BigtableConfig `yaml:"bigtable"`
	Stream           StreamConfig   `yaml:"stream"`
	NoMinimization   bool           `yaml:"no_minimization"`
	FailedBlocksDir  string         `yaml:"failed_blocks_dir"`
	Threads          int            `yaml:"threads"`
	BlockTableChoice int            `yaml:"block_table_choice"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg back out as YAML, the inverse of Load, e.g. to
// generate a starting file. No command in cmd/ calls it.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// BigtableCredentialsPath resolves the credentials file for the
// Bigtable transport.
func (c *Config) BigtableCredentialsPath() string {
	return c.Bigtable.CredentialsFile
}

// The following env-var override helpers are named functions, rather
// than closures in a single main, since cmd/ has several independent
// entrypoints instead of one composition root.

func GetEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func GetEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func GetEnvUint(key string, defaultVal uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func GetEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
