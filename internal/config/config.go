// ABOUTME: Runtime configuration for the command host.
// ABOUTME: Reads .env files, then ROK_* environment variables, then an optional YAML file.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the host needs at startup
type Config struct {
	AdminAddr  string   `env:"ROK_ADMIN_ADDR" envDefault:"127.0.0.1:9100"`
	AdminToken string   `env:"ROK_ADMIN_TOKEN"`
	DBPath     string   `env:"ROK_DB_PATH" envDefault:"rokcore.db"`
	LogLevel   string   `env:"ROK_LOG_LEVEL" envDefault:"info"`
	LogFormat  string   `env:"ROK_LOG_FORMAT" envDefault:"text"`
	Restricted []string `env:"ROK_RESTRICTED_COMMANDS" envSeparator:","`
	Plugins    []string `env:"ROK_PLUGINS" envSeparator:"," envDefault:"essentials,assistant"`
	ConfigFile string   `env:"ROK_CONFIG_FILE"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-5-mini"`
}

// File is the optional YAML configuration
type File struct {
	RestrictedCommands []string `yaml:"restricted_commands"`
	Plugins            []string `yaml:"plugins"`
}

// DefaultEnvFiles are tried in order; missing files are skipped
var DefaultEnvFiles = []string{".env", "../.env"}

// Load reads .env files into the process environment and builds a Config
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil, and merges the YAML file it names.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Restricted = clean(cfg.Restricted)
	cfg.Plugins = clean(cfg.Plugins)

	if cfg.ConfigFile != "" {
		file, err := ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Merge(file)
	}
	return cfg, nil
}

// ReadFile parses a YAML configuration file
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &file, nil
}

// Merge adds the file's restricted commands and plugins to cfg
func (c *Config) Merge(file *File) {
	c.Restricted = clean(append(c.Restricted, file.RestrictedCommands...))
	c.Plugins = clean(append(c.Plugins, file.Plugins...))
}

// clean trims, drops empties and removes duplicates, keeping first-seen order
func clean(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
