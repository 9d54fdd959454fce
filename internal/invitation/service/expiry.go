package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sweeper expires overdue invitations in batches on behalf of the reaper.
type Sweeper struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  invitationdomain.Repository
}

type SweeperParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  invitationdomain.Repository
}

func NewSweeper(p SweeperParam) invitationdomain.ExpirySweeper {
	return &Sweeper{
		db:    p.DB,
		log:   p.Log.Named("invitation.sweeper"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// ExpireDue claims one batch of overdue invitations and moves them to
// EXPIRED with a system entry on each trail. Claim and transition run in
// the same transaction so a response landing first simply wins: the
// guarded update touches zero rows and the invitation is skipped.
func (s *Sweeper) ExpireDue(ctx context.Context, now time.Time, limit int) (int, int, error) {
	if limit <= 0 {
		limit = 100
	}

	expired := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.repo.FetchDueForExpiry(ctx, tx, now, limit)
		if err != nil {
			return err
		}

		for _, id := range ids {
			ok, err := s.repo.Transition(ctx, tx, id, invitationdomain.RespondableStatuses(), invitationdomain.TransitionUpdate{
				Status:    invitationdomain.StatusExpired,
				UpdatedAt: now,
			})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			entry := newEntry(s.genID, id, invitationdomain.ActorSystem, invitationdomain.ActionExpired, now, datatypes.JSONMap{
				"expired_at": now.Format(time.RFC3339),
			})
			if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining64, err := s.repo.CountDueForExpiry(ctx, s.db, now)
	if err != nil {
		return expired, 0, err
	}

	if expired > 0 {
		s.log.Info("invitations expired",
			zap.Int("expired", expired),
			zap.Int64("remaining", remaining64),
		)
	}
	return expired, int(remaining64), nil
}
