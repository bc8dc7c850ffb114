// Package config is used to load the configuration file
package config

import (
	"fmt"

	"github.com/blacktop/swiftbridge/internal/swift"
	"github.com/spf13/viper"
)

type canary struct {
	Name string `mapstructure:"name"`
	Want string `mapstructure:"want"`
}

type demangle struct {
	Paths     []string            `mapstructure:"paths"`
	Symbols   map[string][]string `mapstructure:"symbols"`
	Canary    canary              `mapstructure:"canary"`
	CacheSize int                 `mapstructure:"cache-size"`
}

type ptrauth struct {
	Software bool `mapstructure:"software"`
}

// Config is the configuration struct
type Config struct {
	Demangle demangle `mapstructure:"demangle"`
	Ptrauth  ptrauth  `mapstructure:"ptrauth"`
}

func (c *Config) verify() error {
	if c.Demangle.Canary.Name == "" && c.Demangle.Canary.Want != "" {
		return fmt.Errorf("config: canary want is set without a canary name")
	}
	if c.Demangle.Canary.Name != "" && c.Demangle.Canary.Want == "" {
		return fmt.Errorf("config: canary %q has no expected output", c.Demangle.Canary.Name)
	}
	if c.Demangle.CacheSize < 0 {
		return fmt.Errorf("config: demangle cache-size must not be negative")
	}
	for purpose, names := range c.Demangle.Symbols {
		if len(names) == 0 {
			return fmt.Errorf("config: demangle symbol %q has no candidates", purpose)
		}
	}
	return nil
}

// Swift converts the demangle section into a bridge configuration; unset
// fields fall back to the bridge defaults.
func (c *Config) Swift() (*swift.Config, error) {
	conf := swift.DefaultConfig()
	if len(c.Demangle.Paths) > 0 {
		conf.Paths = c.Demangle.Paths
	}
	for purpose, names := range c.Demangle.Symbols {
		conf.Symbols[swift.Purpose(purpose)] = names
	}
	if c.Demangle.Canary.Name != "" {
		conf.Canary = swift.Canary{Name: c.Demangle.Canary.Name, Want: c.Demangle.Canary.Want}
	}
	conf.CacheSize = c.Demangle.CacheSize
	if err := conf.Verify(); err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}
	return conf, nil
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	var c *Config

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
