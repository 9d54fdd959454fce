package service

import (
	"context"
	"time"

	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Counter records a counter-proposal from the placement office. The
// invitation moves to NEGOTIATING and the round counter advances; once
// the policy round cap is hit, further counters are rejected so a
// stalemate cannot ping-pong forever.
func (s *Service) Counter(ctx context.Context, req invitationdomain.CounterInvitationRequest) (invitationdomain.Invitation, error) {
	id, err := s.parseID(req.InvitationID, invitationdomain.ErrInvalidInvitation)
	if err != nil {
		return invitationdomain.Invitation{}, err
	}

	now := s.clock.Now()
	if err := validateAlternativeDates(req.AlternativeDates, now); err != nil {
		return invitationdomain.Invitation{}, err
	}

	policy := s.policy.Current()
	actor := s.actorOrDefault(ctx, invitationdomain.ActorCollege)

	var result invitationdomain.Invitation
	var flagged bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := s.loadForResponse(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if err := s.checkRespondable(invitation, now); err != nil {
			return err
		}
		if invitation.NegotiationRound >= policy.NegotiationMaxRounds {
			return invitationdomain.ErrNegotiationLimitExceeded
		}

		previous, err := s.repo.LastResponseEntry(ctx, tx, id)
		if err != nil {
			return err
		}

		message := req.Message
		ok, err := s.repo.Transition(ctx, tx, id, invitationdomain.RespondableStatuses(), invitationdomain.TransitionUpdate{
			Status:       invitationdomain.StatusNegotiating,
			RespondedAt:  &now,
			TPOMessage:   &message,
			CounterDates: req.AlternativeDates,
			RoundDelta:   1,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return invitationdomain.ErrInvalidStateTransition
		}

		entry := s.newEntry(id, actor.Role, invitationdomain.ActionCountered, now, datatypes.JSONMap{
			"round":             invitation.NegotiationRound + 1,
			"alternative_dates": encodeDateRanges(req.AlternativeDates),
			"message":           req.Message,
		})
		if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
			return err
		}

		// A second counter landing within the review window means two
		// responses raced. Both stay on the trail and the later one is
		// the effective proposal, but a human gets to look at the row.
		if previous != nil &&
			previous.Action == invitationdomain.ActionCountered &&
			now.Sub(previous.OccurredAt) <= policy.CounterReviewWindow() {
			flagged = true
			if err := s.repo.SetReviewFlag(ctx, tx, id, "concurrent_counter_proposals"); err != nil {
				return err
			}
			flagEntry := s.newEntry(id, invitationdomain.ActorSystem, invitationdomain.ActionFlagged, now, datatypes.JSONMap{
				"reason":           "concurrent_counter_proposals",
				"previous_counter": previous.ID.String(),
			})
			if err := s.repo.AppendHistory(ctx, tx, flagEntry); err != nil {
				return err
			}
		}

		return s.reload(ctx, tx, id, &result)
	})
	if err != nil {
		return invitationdomain.Invitation{}, err
	}

	s.log.Info("invitation countered",
		zap.String("invitation_id", id.String()),
		zap.Int("round", result.NegotiationRound),
		zap.Bool("flagged", flagged),
	)
	return result, nil
}

func validateAlternativeDates(dates []invitationdomain.DateRange, now time.Time) error {
	if len(dates) == 0 {
		return invitationdomain.ErrInvalidAlternativeDates
	}
	for _, date := range dates {
		if !date.End.After(date.Start) {
			return invitationdomain.ErrInvalidAlternativeDates
		}
		if date.Start.Before(now) {
			return invitationdomain.ErrInvalidAlternativeDates
		}
	}
	return nil
}

func encodeDateRanges(dates []invitationdomain.DateRange) []any {
	out := make([]any, 0, len(dates))
	for _, date := range dates {
		out = append(out, map[string]any{
			"start": date.Start.Format(time.RFC3339),
			"end":   date.End.Format(time.RFC3339),
		})
	}
	return out
}
