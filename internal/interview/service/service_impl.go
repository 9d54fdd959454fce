package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       interviewdomain.Repository
	candidates interviewdomain.CandidateSource
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       interviewdomain.Repository
	Candidates interviewdomain.CandidateSource
}

func NewService(p ServiceParam) interviewdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("interview.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		candidates: p.Candidates,
	}
}

// CreateSlot registers an interview block for a job. Slots only make
// sense once a college accepted the campus visit, so the job must carry
// at least one accepted invitation.
func (s *Service) CreateSlot(ctx context.Context, req interviewdomain.CreateSlotRequest) (interviewdomain.InterviewSlot, error) {
	jobID, err := s.parseID(req.JobID, interviewdomain.ErrInvalidJob)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}

	now := s.clock.Now()
	if err := validateSlotSpec(req, now); err != nil {
		return interviewdomain.InterviewSlot{}, err
	}

	accepted, err := s.candidates.HasAccepted(ctx, jobID)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}
	if !accepted {
		return interviewdomain.InterviewSlot{}, interviewdomain.ErrNoAcceptedInvitation
	}

	slot := interviewdomain.InterviewSlot{
		ID:              s.genID.Generate(),
		JobID:           jobID,
		StartAt:         req.StartAt,
		DurationMinutes: req.DurationMinutes,
		Type:            req.Type,
		LocationType:    req.Location.Type,
		LocationDetails: req.Location.Details,
		MeetingLink:     req.Location.MeetingLink,
		MaxCandidates:   req.MaxCandidates,
		Status:          interviewdomain.SlotStatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertSlot(ctx, s.db, &slot); err != nil {
		return interviewdomain.InterviewSlot{}, err
	}

	s.log.Info("interview slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("job_id", jobID.String()),
		zap.Int("max_candidates", slot.MaxCandidates),
	)
	return slot, nil
}

func (s *Service) GetSlot(ctx context.Context, id string) (interviewdomain.InterviewSlot, error) {
	slotID, err := s.parseID(id, interviewdomain.ErrInvalidSlot)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}
	slot, err := s.repo.FindSlotByID(ctx, s.db, slotID)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}
	if slot == nil {
		return interviewdomain.InterviewSlot{}, interviewdomain.ErrSlotNotFound
	}
	return *slot, nil
}

func (s *Service) ListSlots(ctx context.Context, jobID string) ([]interviewdomain.InterviewSlot, error) {
	id, err := s.parseID(jobID, interviewdomain.ErrInvalidJob)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSlotsByJob(ctx, s.db, id)
}

func (s *Service) ListAssignments(ctx context.Context, slotID string) ([]interviewdomain.SlotAssignment, error) {
	id, err := s.parseID(slotID, interviewdomain.ErrInvalidSlot)
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.FindSlotByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, interviewdomain.ErrSlotNotFound
	}
	return s.repo.ListAssignmentsBySlot(ctx, s.db, id)
}

// UpdateSlotStatus moves a slot along scheduled → in_progress →
// completed, with cancellation reachable from either non-terminal state.
// Cancelling cascades to every open assignment; completing marks joined
// candidates as completed so feedback opens up.
func (s *Service) UpdateSlotStatus(ctx context.Context, req interviewdomain.UpdateSlotStatusRequest) (interviewdomain.InterviewSlot, error) {
	slotID, err := s.parseID(req.SlotID, interviewdomain.ErrInvalidSlot)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}
	target, err := parseSlotStatus(req.Status)
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}

	from, ok := slotTransitionSources(target)
	if !ok {
		return interviewdomain.InterviewSlot{}, interviewdomain.ErrInvalidStateTransition
	}

	now := s.clock.Now()
	var result interviewdomain.InterviewSlot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := s.repo.FindSlotByIDForUpdate(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return interviewdomain.ErrSlotNotFound
		}

		changed, err := s.repo.TransitionSlot(ctx, tx, slotID, from, target, now)
		if err != nil {
			return err
		}
		if !changed {
			return interviewdomain.ErrInvalidStateTransition
		}

		switch target {
		case interviewdomain.SlotStatusCancelled:
			cancelled, err := s.repo.CancelAssignmentsBySlot(ctx, tx, slotID, now)
			if err != nil {
				return err
			}
			// assigned_count tracks open assignments, so the cancelled
			// ones hand their seats back.
			if err := s.repo.ReleaseSeats(ctx, tx, slotID, cancelled, now); err != nil {
				return err
			}
			s.log.Info("slot cancelled",
				zap.String("slot_id", slotID.String()),
				zap.Int64("assignments_cancelled", cancelled),
			)
		case interviewdomain.SlotStatusCompleted:
			if _, err := s.repo.CompleteJoinedAssignmentsBySlot(ctx, tx, slotID, now); err != nil {
				return err
			}
		}

		updated, err := s.repo.FindSlotByID(ctx, tx, slotID)
		if err != nil {
			return err
		}
		result = *updated
		return nil
	})
	if err != nil {
		return interviewdomain.InterviewSlot{}, err
	}
	return result, nil
}

// Confirm acknowledges an assignment while the slot is still scheduled.
// Re-confirming a confirmed (or already joined) assignment is a no-op.
func (s *Service) Confirm(ctx context.Context, assignmentID string) (interviewdomain.SlotAssignment, error) {
	id, err := s.parseID(assignmentID, interviewdomain.ErrInvalidAssignment)
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}

	now := s.clock.Now()
	var result interviewdomain.SlotAssignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.repo.FindAssignmentByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if assignment == nil {
			return interviewdomain.ErrAssignmentNotFound
		}

		switch assignment.Status {
		case interviewdomain.AssignmentStatusCancelled:
			return interviewdomain.ErrSlotCancelled
		case interviewdomain.AssignmentStatusConfirmed,
			interviewdomain.AssignmentStatusJoined,
			interviewdomain.AssignmentStatusCompleted:
			result = *assignment
			return nil
		}

		slot, err := s.repo.FindSlotByID(ctx, tx, assignment.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return interviewdomain.ErrSlotNotFound
		}
		if slot.Status == interviewdomain.SlotStatusCancelled {
			return interviewdomain.ErrSlotCancelled
		}
		if slot.Status != interviewdomain.SlotStatusScheduled {
			return interviewdomain.ErrInvalidStateTransition
		}

		changed, err := s.repo.TransitionAssignment(ctx, tx, id,
			[]interviewdomain.AssignmentStatus{interviewdomain.AssignmentStatusPendingConfirmation},
			interviewdomain.AssignmentStatusConfirmed, now)
		if err != nil {
			return err
		}
		if !changed {
			return interviewdomain.ErrInvalidStateTransition
		}
		return s.reloadAssignment(ctx, tx, id, &result)
	})
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}
	return result, nil
}

// Join records attendance. The candidate must have confirmed, the slot
// must be running, and the clock must sit inside the join window.
func (s *Service) Join(ctx context.Context, assignmentID string) (interviewdomain.SlotAssignment, error) {
	id, err := s.parseID(assignmentID, interviewdomain.ErrInvalidAssignment)
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}

	now := s.clock.Now()
	policy := s.policy.Current()

	var result interviewdomain.SlotAssignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.repo.FindAssignmentByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if assignment == nil {
			return interviewdomain.ErrAssignmentNotFound
		}

		switch assignment.Status {
		case interviewdomain.AssignmentStatusCancelled:
			return interviewdomain.ErrSlotCancelled
		case interviewdomain.AssignmentStatusJoined:
			result = *assignment
			return nil
		case interviewdomain.AssignmentStatusCompleted:
			return interviewdomain.ErrInvalidStateTransition
		case interviewdomain.AssignmentStatusPendingConfirmation:
			return interviewdomain.ErrNotConfirmed
		}

		slot, err := s.repo.FindSlotByID(ctx, tx, assignment.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return interviewdomain.ErrSlotNotFound
		}
		if slot.Status == interviewdomain.SlotStatusCancelled {
			return interviewdomain.ErrSlotCancelled
		}
		if slot.Status != interviewdomain.SlotStatusInProgress {
			return interviewdomain.ErrSlotNotInProgress
		}

		windowOpen := slot.StartAt.Add(-policy.JoinEarlyWindow())
		if now.Before(windowOpen) || now.After(slot.EndAt()) {
			return interviewdomain.ErrJoinWindowClosed
		}

		changed, err := s.repo.MarkJoined(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if !changed {
			return interviewdomain.ErrInvalidStateTransition
		}
		return s.reloadAssignment(ctx, tx, id, &result)
	})
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}
	return result, nil
}

// SubmitFeedback stores the interviewer's verdict, exactly once, after
// the slot has completed.
func (s *Service) SubmitFeedback(ctx context.Context, req interviewdomain.SubmitFeedbackRequest) (interviewdomain.SlotAssignment, error) {
	id, err := s.parseID(req.AssignmentID, interviewdomain.ErrInvalidAssignment)
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return interviewdomain.SlotAssignment{}, interviewdomain.ErrInvalidFeedback
	}

	now := s.clock.Now()
	var result interviewdomain.SlotAssignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.repo.FindAssignmentByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if assignment == nil {
			return interviewdomain.ErrAssignmentNotFound
		}
		if assignment.Status == interviewdomain.AssignmentStatusCancelled {
			return interviewdomain.ErrInvalidStateTransition
		}

		slot, err := s.repo.FindSlotByID(ctx, tx, assignment.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return interviewdomain.ErrSlotNotFound
		}
		if slot.Status != interviewdomain.SlotStatusCompleted {
			return interviewdomain.ErrInvalidStateTransition
		}

		written, err := s.repo.SetFeedback(ctx, tx, id, req.Rating, req.Comments, now)
		if err != nil {
			return err
		}
		if !written {
			return interviewdomain.ErrFeedbackAlreadySubmitted
		}
		return s.reloadAssignment(ctx, tx, id, &result)
	})
	if err != nil {
		return interviewdomain.SlotAssignment{}, err
	}
	return result, nil
}

func (s *Service) reloadAssignment(ctx context.Context, tx *gorm.DB, id snowflake.ID, out *interviewdomain.SlotAssignment) error {
	assignment, err := s.repo.FindAssignmentByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if assignment == nil {
		return interviewdomain.ErrAssignmentNotFound
	}
	*out = *assignment
	return nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, invalidErr
	}
	return parsed, nil
}

func validateSlotSpec(req interviewdomain.CreateSlotRequest, now time.Time) error {
	if !req.StartAt.After(now) {
		return interviewdomain.ErrInvalidSlotSpec
	}
	if req.DurationMinutes <= 0 || req.MaxCandidates < 1 {
		return interviewdomain.ErrInvalidSlotSpec
	}
	switch req.Type {
	case interviewdomain.SlotTypeTechnical,
		interviewdomain.SlotTypeHR,
		interviewdomain.SlotTypeGroupDiscussion,
		interviewdomain.SlotTypeCodingTest:
	default:
		return interviewdomain.ErrInvalidSlotSpec
	}
	switch req.Location.Type {
	case interviewdomain.LocationOnline:
		if strings.TrimSpace(req.Location.MeetingLink) == "" {
			return interviewdomain.ErrInvalidSlotSpec
		}
	case interviewdomain.LocationOffline:
		if strings.TrimSpace(req.Location.Details) == "" {
			return interviewdomain.ErrInvalidSlotSpec
		}
	default:
		return interviewdomain.ErrInvalidSlotSpec
	}
	return nil
}

func parseSlotStatus(value string) (interviewdomain.SlotStatus, error) {
	status := interviewdomain.SlotStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case interviewdomain.SlotStatusScheduled,
		interviewdomain.SlotStatusInProgress,
		interviewdomain.SlotStatusCompleted,
		interviewdomain.SlotStatusCancelled:
		return status, nil
	default:
		return "", interviewdomain.ErrInvalidSlotStatus
	}
}

// slotTransitionSources returns the source states a target status may be
// reached from.
func slotTransitionSources(target interviewdomain.SlotStatus) ([]interviewdomain.SlotStatus, bool) {
	switch target {
	case interviewdomain.SlotStatusInProgress:
		return []interviewdomain.SlotStatus{interviewdomain.SlotStatusScheduled}, true
	case interviewdomain.SlotStatusCompleted:
		return []interviewdomain.SlotStatus{interviewdomain.SlotStatusInProgress}, true
	case interviewdomain.SlotStatusCancelled:
		return []interviewdomain.SlotStatus{
			interviewdomain.SlotStatusScheduled,
			interviewdomain.SlotStatusInProgress,
		}, true
	default:
		return nil, false
	}
}
