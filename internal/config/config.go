// Package config loads buffer pool tuning parameters from a YAML file,
// following the pack's viper.New()-per-call pattern so loading stays
// test-friendly (no global viper singleton to leak state between tests).
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the constructor parameters the spec exposes: pool size, the
// LRU-K replacer's K, the extendible hash directory's bucket size, and the
// backing file path for the disk manager.
type Config struct {
	PoolSize   int    `mapstructure:"pool_size"`
	ReplacerK  int    `mapstructure:"replacer_k"`
	BucketSize int    `mapstructure:"bucket_size"`
	DBPath     string `mapstructure:"db_path"`
}

// Default returns the spec's suggested defaults.
func Default() Config {
	return Config{
		PoolSize:   64,
		ReplacerK:  5,
		BucketSize: 4,
		DBPath:     "quaydb.db",
	}
}

// Load reads a YAML file at path and unmarshals it over the defaults, so a
// config file that only sets pool_size still gets the documented defaults
// for everything else.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
