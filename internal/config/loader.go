package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Credentials are the usual case: access tokens and warehouse passwords are kept
// out of config files.
func substituteEnvVars(cfg *Config) {
	cfg.Source.WorkspaceURL = expandEnvVar(cfg.Source.WorkspaceURL)
	cfg.Source.AccessToken = expandEnvVar(cfg.Source.AccessToken)
	cfg.Source.CatalogFilter = expandEnvVar(cfg.Source.CatalogFilter)

	cfg.Warehouse.Host = expandEnvVar(cfg.Warehouse.Host)
	cfg.Warehouse.User = expandEnvVar(cfg.Warehouse.User)
	cfg.Warehouse.Password = expandEnvVar(cfg.Warehouse.Password)
	cfg.Warehouse.Database = expandEnvVar(cfg.Warehouse.Database)

	cfg.Checkpoint.Path = expandEnvVar(cfg.Checkpoint.Path)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}
