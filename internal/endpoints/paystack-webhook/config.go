// internal/endpoints/paystack-webhook/config.go
package paystackwebhook

import (
	"fmt"

	"studybuddy-payments/internal/common/config"
)

type Config struct {
	SecretKey             string
	MaxBodyBytes          int64
	UnmatchedAmountPolicy string
}

func DefaultConfig() *Config {
	return &Config{
		MaxBodyBytes:          1 << 20,
		UnmatchedAmountPolicy: config.UnmatchedAmountDefaultPlan,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.SecretKey = cfg.Paystack.SecretKey
	if cfg.Webhook.MaxBodyBytes > 0 {
		c.MaxBodyBytes = cfg.Webhook.MaxBodyBytes
	}
	if cfg.Webhook.UnmatchedAmountPolicy != "" {
		c.UnmatchedAmountPolicy = cfg.Webhook.UnmatchedAmountPolicy
	}
	return c
}

func (c *Config) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	switch c.UnmatchedAmountPolicy {
	case config.UnmatchedAmountDefaultPlan, config.UnmatchedAmountReject:
	default:
		return fmt.Errorf("unknown unmatched_amount_policy %q", c.UnmatchedAmountPolicy)
	}
	return nil
}
