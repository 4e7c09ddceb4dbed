package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfigIsValid(t *testing.T) {
	require.NoError(t, validateBillingConfig(DefaultBillingConfig()))
}

func TestValidateBillingConfigRejectsBadValues(t *testing.T) {
	cases := map[string]func(*BillingConfig){
		"zero period":      func(c *BillingConfig) { c.CyclePeriodDays = 0 },
		"negative grace":   func(c *BillingConfig) { c.GraceDays = -1 },
		"zero interval":    func(c *BillingConfig) { c.RunInterval = 0 },
		"zero batch":       func(c *BillingConfig) { c.BatchSize = 0 },
		"zero concurrency": func(c *BillingConfig) { c.NotifyConcurrency = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultBillingConfig()
			mutate(&cfg)
			assert.Error(t, validateBillingConfig(cfg))
		})
	}
}

func TestStaticHolderServesPinnedConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.CyclePeriodDays = 14
	cfg.StoreTimeout = 3 * time.Second

	holder := NewStaticBillingConfigHolder(cfg)
	got := holder.Get()
	assert.Equal(t, 14, got.CyclePeriodDays)
	assert.Equal(t, 3*time.Second, got.StoreTimeout)
}
