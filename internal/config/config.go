package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultListen is the loopback address the event bridge binds to when
// the config does not say otherwise.
const DefaultListen = "127.0.0.1:48632"

// EventHubConfig holds the delivery endpoint identity and signing key.
// When Enabled is false the rest of the section is ignored.
type EventHubConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Hub       string `toml:"hub"`
	KeyName   string `toml:"key_name"`
	Key       string `toml:"key"`
}

type Config struct {
	Listen    string         `toml:"listen"`
	StatePath string         `toml:"state_path"`
	EventHub  EventHubConfig `toml:"eventhub"`
}

// SetDefault fills unset fields with their defaults.
func (c *Config) SetDefault() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.StatePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		c.StatePath = filepath.Join(dir, "tabtime", "records.json")
	}
}

// Validate checks that an enabled eventhub section is complete.
func (c *Config) Validate() error {
	if !c.EventHub.Enabled {
		return nil
	}
	switch {
	case c.EventHub.Namespace == "":
		return fmt.Errorf("eventhub.namespace is required when eventhub is enabled")
	case c.EventHub.Hub == "":
		return fmt.Errorf("eventhub.hub is required when eventhub is enabled")
	case c.EventHub.KeyName == "":
		return fmt.Errorf("eventhub.key_name is required when eventhub is enabled")
	case c.EventHub.Key == "":
		return fmt.Errorf("eventhub.key is required when eventhub is enabled")
	}
	return nil
}

// LoadConfigFromFile reads a TOML config. A missing file yields the
// defaults rather than an error.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := &Config{}
			c.SetDefault()
			return c, nil
		}
		return nil, err
	}
	return LoadConfigFromBytes(data)
}

func LoadConfigFromBytes(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.SetDefault()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
