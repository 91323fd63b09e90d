// internal/endpoints/verify-payment/config.go
package verifypayment

import (
	"fmt"

	"studybuddy-payments/internal/common/config"
)

type Config struct {
	SecretKey    string
	MaxBodyBytes int64
}

func DefaultConfig() *Config {
	return &Config{
		MaxBodyBytes: 64 << 10,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.SecretKey = cfg.Paystack.SecretKey
	return c
}

// Configured reports whether the gateway secret is present.
func (c *Config) Configured() bool {
	return c.SecretKey != ""
}

func (c *Config) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}
