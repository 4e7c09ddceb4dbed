package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds the billing tunables that operations may change at
// runtime without a redeploy.
type BillingConfig struct {
	// CyclePeriodDays is the fixed length of a billing cycle.
	CyclePeriodDays int `mapstructure:"cyclePeriodDays"`
	// GraceDays is the payment window granted after an invoice is created.
	GraceDays int `mapstructure:"graceDays"`
	// RunInterval is how often the scheduler wakes up.
	RunInterval time.Duration `mapstructure:"runInterval"`
	// BatchSize bounds how many stores one claim query may lock.
	BatchSize int `mapstructure:"batchSize"`
	// StoreTimeout bounds one store's pipeline so a stuck store cannot stall the run.
	StoreTimeout time.Duration `mapstructure:"storeTimeout"`
	// NotifyConcurrency bounds the notification fan-out.
	NotifyConcurrency int `mapstructure:"notifyConcurrency"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		CyclePeriodDays:   30,
		GraceDays:         7,
		RunInterval:       time.Hour,
		BatchSize:         50,
		StoreTimeout:      15 * time.Second,
		NotifyConcurrency: 8,
	}
}

// BillingConfigHolder serves the current BillingConfig and hot-reloads it
// when the config file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pedidoz/config")
	v.AddConfigPath("/etc/pedidoz")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PEDIDOZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.cyclePeriodDays", defaults.CyclePeriodDays)
	v.SetDefault("billing.graceDays", defaults.GraceDays)
	v.SetDefault("billing.runInterval", defaults.RunInterval)
	v.SetDefault("billing.batchSize", defaults.BatchSize)
	v.SetDefault("billing.storeTimeout", defaults.StoreTimeout)
	v.SetDefault("billing.notifyConcurrency", defaults.NotifyConcurrency)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder returns a holder pinned to cfg, for tests and
// tooling that do not watch a config file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.CyclePeriodDays <= 0 {
		return errors.New("billing.cyclePeriodDays must be positive")
	}
	if cfg.GraceDays < 0 {
		return errors.New("billing.graceDays cannot be negative")
	}
	if cfg.RunInterval <= 0 {
		return errors.New("billing.runInterval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("billing.batchSize must be positive")
	}
	if cfg.NotifyConcurrency <= 0 {
		return errors.New("billing.notifyConcurrency must be positive")
	}
	return nil
}
