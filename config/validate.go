package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "leveldb", "memory":
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.RPC.Address) == "" {
		return fmt.Errorf("rpc: address required")
	}
	if c.RPC.RateLimitPerSecond < 0 {
		return fmt.Errorf("rpc: rate limit must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.Burst <= 0 {
		return fmt.Errorf("rpc: burst must be positive when rate limiting")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample ratio must be within [0,1]")
	}
	if _, err := c.Deployment(); err != nil {
		return err
	}
	return nil
}
