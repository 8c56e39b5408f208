package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigFileName is the config file looked up from the working directory
// upwards.
const ConfigFileName = "qcase.yaml"

// Config holds settings shared by every command. Flags override it.
type Config struct {
	SchemasDir   string         `mapstructure:"schemas_dir"`
	ScenariosDir string         `mapstructure:"scenarios_dir"`
	Database     DatabaseConfig `mapstructure:"database"`
	Log          LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the database fetch runs against.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 | mysql
	DSN    string `mapstructure:"dsn"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from, in increasing priority: defaults,
// the config file, and QCASE_* environment variables. A .env file in the
// working directory is loaded into the environment first.
//
// With an empty path the config file is searched from the working directory
// up to the filesystem root; not finding one is fine.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("schemas_dir", "schemas")
	v.SetDefault("scenarios_dir", "scenarios")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "qcase.db")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("QCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile walks up from the working directory looking for
// ConfigFileName.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
