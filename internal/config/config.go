// Package config resolves the store connection settings.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML
// file, environment variables, command-line flags. The CLI applies the
// flag layer; this package owns the rest.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvHost     = "CNS_HOST"
	EnvPort     = "CNS_PORT"
	EnvUsername = "CNS_USERNAME"
	EnvPassword = "CNS_PASSWORD"
)

// Default connection settings.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 2379
)

// Config carries the store connection settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{Host: DefaultHost, Port: DefaultPort}
}

// LoadFile overlays settings from a YAML file. Fields absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays settings from the environment. Unset variables keep
// their current values; an unparsable port is an error.
func (c *Config) LoadEnv() error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s=%q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv(EnvUsername); ok {
		c.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Password = v
	}
	return nil
}
