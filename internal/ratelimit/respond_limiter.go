package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/talentgrid/campushire/internal/config"
)

const keyRespondActor = "invitation:respond:actor:%s"

// RespondLimiter throttles invitation responses per actor so a runaway
// client cannot spin the negotiation round counter or spam the audit
// trail. Disabled deployments get a nil limiter and every call passes.
type RespondLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewRespondLimiter(cfg config.Config, client RedisClient) (*RespondLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if client.Client == nil {
		return nil, errors.New("rate limit requires redis")
	}
	if cfg.RespondRate <= 0 || cfg.RespondBurst <= 0 {
		return nil, errors.New("respond rate limit must be positive")
	}

	return &RespondLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client.Client),
		rate:    cfg.RespondRate,
		burst:   cfg.RespondBurst,
	}, nil
}

func (l *RespondLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *RespondLimiter) AllowActor(ctx context.Context, actorID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRespondActor, strings.TrimSpace(actorID)), l.rate, l.burst)
}
