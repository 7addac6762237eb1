// Package config resolves runtime configuration from the environment and
// an optional YAML manifest, following cmd/kored/main.go's getEnv/getEnvInt
// helper pattern — environment variables with defaults, no required-flag
// framework beyond what a handful of getEnv calls need.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is everything the runtime entry needs to start: which module to
// request first, where to look for module libraries, and the log level.
type Config struct {
	SeedModule string                 `yaml:"seed_module"`
	SearchPath string                 `yaml:"search_path"`
	LogLevel   string                 `yaml:"log_level"`
	LogPretty  bool                   `yaml:"log_pretty"`
	IntrospectPort int                `yaml:"introspect_port"`
	Modules    map[string]ModuleEntry `yaml:"modules"`
}

// ModuleEntry carries a per-module configuration blob as parsed from the
// manifest. The core never interprets these values, and nothing in the core
// passes them on to the modules.
type ModuleEntry struct {
	Config map[string]interface{} `yaml:"config"`
}

// Load builds a Config from environment variables, then overlays a YAML
// manifest if manifestPath is non-empty. Environment variables set the
// defaults so a manifest-free deployment still works from MODCORE_* alone;
// the manifest then fills in anything it explicitly specifies.
func Load(manifestPath string) (Config, error) {
	cfg := Config{
		SeedModule: getEnv("MODCORE_SEED_MODULE", ""),
		SearchPath: getEnv("MODCORE_SEARCH_PATH", "modules/"),
		LogLevel:   getEnv("MODCORE_LOG_LEVEL", "info"),
		LogPretty:  getEnv("MODCORE_LOG_PRETTY", "false") == "true",
		IntrospectPort: getEnvInt("MODCORE_INTROSPECT_PORT", 0),
	}

	if manifestPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading manifest %s: %w", manifestPath, err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Config{}, fmt.Errorf("config: parsing manifest %s: %w", manifestPath, err)
	}

	if fromFile.SeedModule != "" {
		cfg.SeedModule = fromFile.SeedModule
	}
	if fromFile.SearchPath != "" {
		cfg.SearchPath = fromFile.SearchPath
	}
	if fromFile.LogLevel != "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	if fromFile.LogPretty {
		cfg.LogPretty = true
	}
	if fromFile.Modules != nil {
		cfg.Modules = fromFile.Modules
	}
	if fromFile.IntrospectPort != 0 {
		cfg.IntrospectPort = fromFile.IntrospectPort
	}
	return cfg, nil
}

// Validate rejects a Config that cannot start a runtime.
func (c Config) Validate() error {
	if c.SeedModule == "" {
		return fmt.Errorf("config: seed module is required (MODCORE_SEED_MODULE or manifest seed_module)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
