package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults, and validates.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Routing.Scope == "" {
		c.Routing.Scope = "global"
	}
	if c.Routing.AssignmentTTL == 0 {
		c.Routing.AssignmentTTL = Duration(time.Hour)
	}
	if c.Routing.RetryInterval == 0 {
		c.Routing.RetryInterval = Duration(60 * time.Second)
	}
	if c.Routing.FailureMarkTTL == 0 {
		c.Routing.FailureMarkTTL = Duration(10 * time.Minute)
	}
	if c.Routing.MetricsWindow == 0 {
		c.Routing.MetricsWindow = Duration(time.Hour)
	}

	for i := range c.Providers {
		if c.Providers[i].Timeout == 0 {
			c.Providers[i].Timeout = Duration(10 * time.Second)
		}
	}

	// Default provider follows the cost-preference rule: cheapest wins,
	// earlier listing breaks ties.
	if c.Routing.DefaultProvider == "" && len(c.Providers) > 0 {
		best := c.Providers[0]
		for _, p := range c.Providers[1:] {
			if p.CostPerCall < best.CostPerCall {
				best = p
			}
		}
		c.Routing.DefaultProvider = best.Name
	}
}

// Validate checks the configuration for startup-fatal mistakes.
func (c *AppConfig) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: at least one provider is required")
	}

	if c.Routing.Scope != "global" && c.Routing.Scope != "per-caller" {
		return fmt.Errorf("config: routing.scope must be \"global\" or \"per-caller\", got %q", c.Routing.Scope)
	}

	seen := make(map[string]bool, len(c.Providers))
	defaultFound := false
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case "scraping", "external", "grpc":
		default:
			return fmt.Errorf("config: provider %q has unknown type %q", p.Name, p.Type)
		}
		if p.URL == "" {
			return fmt.Errorf("config: provider %q has no url", p.Name)
		}
		if p.CostPerCall < 0 {
			return fmt.Errorf("config: provider %q has negative cost", p.Name)
		}
		if p.Name == c.Routing.DefaultProvider {
			defaultFound = true
		}
	}

	if !defaultFound {
		return fmt.Errorf("config: routing.default_provider %q is not a configured provider", c.Routing.DefaultProvider)
	}

	return nil
}
