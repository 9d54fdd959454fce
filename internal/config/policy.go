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

// Policy holds negotiation and scheduling rules that operators tune per
// deployment without a redeploy.
type Policy struct {
	NegotiationMaxRounds  int `mapstructure:"negotiationMaxRounds"`
	CounterReviewWindowMS int `mapstructure:"counterReviewWindowMs"`
	JoinEarlyMinutes      int `mapstructure:"joinEarlyMinutes"`
	MinExpiresInDays      int `mapstructure:"minExpiresInDays"`
	MaxExpiresInDays      int `mapstructure:"maxExpiresInDays"`
}

func DefaultPolicy() Policy {
	return Policy{
		NegotiationMaxRounds:  5,
		CounterReviewWindowMS: 5000,
		JoinEarlyMinutes:      15,
		MinExpiresInDays:      1,
		MaxExpiresInDays:      60,
	}
}

func (p Policy) CounterReviewWindow() time.Duration {
	return time.Duration(p.CounterReviewWindowMS) * time.Millisecond
}

func (p Policy) JoinEarlyWindow() time.Duration {
	return time.Duration(p.JoinEarlyMinutes) * time.Minute
}

// PolicyHolder serves the current policy and hot-reloads it when the
// config file changes.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/campushire/config")
	v.AddConfigPath("/etc/campushire")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMPUSHIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.negotiationMaxRounds", defaults.NegotiationMaxRounds)
	v.SetDefault("policy.counterReviewWindowMs", defaults.CounterReviewWindowMS)
	v.SetDefault("policy.joinEarlyMinutes", defaults.JoinEarlyMinutes)
	v.SetDefault("policy.minExpiresInDays", defaults.MinExpiresInDays)
	v.SetDefault("policy.maxExpiresInDays", defaults.MaxExpiresInDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Policy
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicy(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy, used by tests.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *PolicyHolder) Current() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	if cfg, ok := h.current.Load().(Policy); ok {
		return cfg
	}
	return DefaultPolicy()
}

func validatePolicy(p Policy) error {
	if p.NegotiationMaxRounds < 1 {
		return errors.New("policy: negotiationMaxRounds must be at least 1")
	}
	if p.CounterReviewWindowMS < 0 {
		return errors.New("policy: counterReviewWindowMs must not be negative")
	}
	if p.JoinEarlyMinutes < 0 {
		return errors.New("policy: joinEarlyMinutes must not be negative")
	}
	if p.MinExpiresInDays < 1 || p.MaxExpiresInDays < p.MinExpiresInDays {
		return errors.New("policy: expiry day bounds are inconsistent")
	}
	return nil
}
