package reaper

import (
	"time"

	"github.com/talentgrid/campushire/internal/config"
)

// Config controls sweep cadence and batch sizing.
type Config struct {
	RunInterval  time.Duration
	BatchSize    int
	SweepTimeout time.Duration
	LockTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  time.Minute,
		BatchSize:    100,
		SweepTimeout: 30 * time.Second,
		LockTTL:      time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:  time.Duration(cfg.ReaperIntervalSecs) * time.Second,
		BatchSize:    cfg.ReaperBatchSize,
		SweepTimeout: time.Duration(cfg.ReaperSweepTimeoutSecs) * time.Second,
		LockTTL:      time.Duration(cfg.ReaperLockTTLSecs) * time.Second,
	}.withDefaults()
}
