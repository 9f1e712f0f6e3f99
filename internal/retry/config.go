package retry

import (
	"time"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
)

// FromConfig converts the configuration's retry section into a policy,
// filling zero values from the defaults.
func FromConfig(cfg *config.RetryConfig) Config {
	policy := DefaultConfig()
	if cfg == nil {
		return policy
	}
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelaySecs > 0 {
		policy.BaseDelay = time.Duration(cfg.BaseDelaySecs * float64(time.Second))
	}
	if cfg.MaxDelaySecs > 0 {
		policy.MaxDelay = time.Duration(cfg.MaxDelaySecs * float64(time.Second))
	}
	if cfg.BackoffFactor > 1 {
		policy.BackoffFactor = cfg.BackoffFactor
	}
	if cfg.JitterFactor > 0 {
		policy.JitterFactor = cfg.JitterFactor
	}
	return policy
}
