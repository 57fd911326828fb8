package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
)

const ConfigFileEnv = "TASKKEEPER_CLIENT_CONFIG"

type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	TokenFile      string
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("%w: server url is required", common.ErrConfiguration)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request timeout must be positive", common.ErrConfiguration)
	}
	return nil
}

// LoadConfig builds a Config from defaults, the JSON file and args
// (without the program name), in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
