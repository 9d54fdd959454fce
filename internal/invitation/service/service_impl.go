package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/talentgrid/campushire/internal/actorcontext"
	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"github.com/talentgrid/campushire/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder
	repo   invitationdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder
	Repo   invitationdomain.Repository
}

func NewService(p ServiceParam) invitationdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invitation.service"),

		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,
		repo:   p.Repo,
	}
}

// Create fans one invitation out to every target college in a single
// transaction and seeds each negotiation trail with a created entry.
func (s *Service) Create(ctx context.Context, req invitationdomain.CreateInvitationRequest) ([]invitationdomain.Invitation, error) {
	jobID, err := s.parseID(req.JobID, invitationdomain.ErrInvalidJob)
	if err != nil {
		return nil, err
	}
	if len(req.CollegeIDs) == 0 {
		return nil, invitationdomain.ErrInvalidCollege
	}
	collegeIDs := make([]snowflake.ID, 0, len(req.CollegeIDs))
	seen := make(map[snowflake.ID]struct{}, len(req.CollegeIDs))
	for _, raw := range req.CollegeIDs {
		collegeID, err := s.parseID(raw, invitationdomain.ErrInvalidCollege)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[collegeID]; ok {
			return nil, invitationdomain.ErrInvalidCollege
		}
		seen[collegeID] = struct{}{}
		collegeIDs = append(collegeIDs, collegeID)
	}

	now := s.clock.Now()
	if err := validateProposedDates(req.ProposedDates, now); err != nil {
		return nil, err
	}

	policy := s.policy.Current()
	if req.ExpiresInDays < policy.MinExpiresInDays || req.ExpiresInDays > policy.MaxExpiresInDays {
		return nil, invitationdomain.ErrInvalidExpiresInDays
	}
	if req.MinStudents < 0 || req.MaxStudents < 0 {
		return nil, invitationdomain.ErrInvalidStudentLimits
	}
	if req.MaxStudents > 0 && req.MinStudents > req.MaxStudents {
		return nil, invitationdomain.ErrInvalidStudentLimits
	}
	for _, course := range req.AllowedCourses {
		if strings.TrimSpace(course) == "" {
			return nil, invitationdomain.ErrInvalidEligibilityCourses
		}
	}

	expiresAt := now.Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
	actor := s.actorOrDefault(ctx, invitationdomain.ActorRecruiter)

	invitations := make([]*invitationdomain.Invitation, 0, len(collegeIDs))
	entries := make([]*invitationdomain.NegotiationEntry, 0, len(collegeIDs))
	for _, collegeID := range collegeIDs {
		invitation := &invitationdomain.Invitation{
			ID:              s.genID.Generate(),
			JobID:           jobID,
			RecruiterID:     actor.ID,
			CollegeID:       collegeID,
			Status:          invitationdomain.StatusPending,
			Message:         req.Message,
			ProposedDates:   datatypes.NewJSONSlice(req.ProposedDates),
			AllowedCourses:  datatypes.NewJSONSlice(req.AllowedCourses),
			MinCGPA:         req.MinCGPA,
			GraduationYears: datatypes.NewJSONSlice(req.GraduationYears),
			MaxBacklogs:     req.MaxBacklogs,
			MinStudents:     req.MinStudents,
			MaxStudents:     req.MaxStudents,
			SentAt:          now,
			ExpiresAt:       expiresAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		invitations = append(invitations, invitation)
		entries = append(entries, s.newEntry(invitation.ID, actor.Role, invitationdomain.ActionCreated, now, datatypes.JSONMap{
			"message":       req.Message,
			"expires_at":    expiresAt.Format(time.RFC3339),
			"date_count":    len(req.ProposedDates),
			"college_count": len(collegeIDs),
		}))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, invitations); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invitations created",
		zap.String("job_id", jobID.String()),
		zap.Int("colleges", len(invitations)),
	)

	out := make([]invitationdomain.Invitation, 0, len(invitations))
	for _, invitation := range invitations {
		out = append(out, *invitation)
	}
	return out, nil
}

// Respond dispatches the single response surface to the action handlers.
func (s *Service) Respond(ctx context.Context, req invitationdomain.RespondInvitationRequest) (invitationdomain.Invitation, error) {
	switch req.Action {
	case invitationdomain.ResponseActionAccept:
		return s.Accept(ctx, invitationdomain.AcceptInvitationRequest{
			InvitationID: req.InvitationID,
			Window:       req.Window,
			Message:      req.Message,
		})
	case invitationdomain.ResponseActionDecline:
		return s.Decline(ctx, invitationdomain.DeclineInvitationRequest{
			InvitationID: req.InvitationID,
			Reason:       req.Reason,
		})
	case invitationdomain.ResponseActionCounter:
		return s.Counter(ctx, invitationdomain.CounterInvitationRequest{
			InvitationID:     req.InvitationID,
			AlternativeDates: req.AlternativeDates,
			Message:          req.Message,
		})
	default:
		return invitationdomain.Invitation{}, invitationdomain.ErrInvalidResponseAction
	}
}

func (s *Service) Accept(ctx context.Context, req invitationdomain.AcceptInvitationRequest) (invitationdomain.Invitation, error) {
	id, err := s.parseID(req.InvitationID, invitationdomain.ErrInvalidInvitation)
	if err != nil {
		return invitationdomain.Invitation{}, err
	}

	now := s.clock.Now()
	actor := s.actorOrDefault(ctx, invitationdomain.ActorCollege)

	if req.Window == nil || !req.Window.End.After(req.Window.Start) {
		return invitationdomain.Invitation{}, invitationdomain.ErrInvalidVisitWindow
	}
	window := *req.Window

	var result invitationdomain.Invitation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := s.loadForResponse(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		// Re-accepting an accepted invitation is a no-op: return the
		// current state without a duplicate history entry.
		if invitation.Status == invitationdomain.StatusAccepted {
			result = *invitation
			return nil
		}
		if err := s.checkRespondable(invitation, now); err != nil {
			return err
		}

		message := req.Message
		ok, err := s.repo.Transition(ctx, tx, id, invitationdomain.RespondableStatuses(), invitationdomain.TransitionUpdate{
			Status:       invitationdomain.StatusAccepted,
			RespondedAt:  &now,
			VisitStartAt: &window.Start,
			VisitEndAt:   &window.End,
			TPOMessage:   &message,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return invitationdomain.ErrInvalidStateTransition
		}

		entry := s.newEntry(id, actor.Role, invitationdomain.ActionAccepted, now, datatypes.JSONMap{
			"visit_start_at": window.Start.Format(time.RFC3339),
			"visit_end_at":   window.End.Format(time.RFC3339),
			"message":        req.Message,
		})
		if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
			return err
		}

		return s.reload(ctx, tx, id, &result)
	})
	if err != nil {
		return invitationdomain.Invitation{}, err
	}

	s.log.Info("invitation accepted", zap.String("invitation_id", id.String()))
	return result, nil
}

func (s *Service) Decline(ctx context.Context, req invitationdomain.DeclineInvitationRequest) (invitationdomain.Invitation, error) {
	id, err := s.parseID(req.InvitationID, invitationdomain.ErrInvalidInvitation)
	if err != nil {
		return invitationdomain.Invitation{}, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return invitationdomain.Invitation{}, invitationdomain.ErrInvalidDeclineReason
	}

	now := s.clock.Now()
	actor := s.actorOrDefault(ctx, invitationdomain.ActorCollege)

	var result invitationdomain.Invitation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := s.loadForResponse(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		if invitation.Status == invitationdomain.StatusDeclined {
			result = *invitation
			return nil
		}
		if err := s.checkRespondable(invitation, now); err != nil {
			return err
		}

		reason := req.Reason
		ok, err := s.repo.Transition(ctx, tx, id, invitationdomain.RespondableStatuses(), invitationdomain.TransitionUpdate{
			Status:      invitationdomain.StatusDeclined,
			RespondedAt: &now,
			TPOMessage:  &reason,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return invitationdomain.ErrInvalidStateTransition
		}

		entry := s.newEntry(id, actor.Role, invitationdomain.ActionDeclined, now, datatypes.JSONMap{
			"reason": req.Reason,
		})
		if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
			return err
		}

		return s.reload(ctx, tx, id, &result)
	})
	if err != nil {
		return invitationdomain.Invitation{}, err
	}

	s.log.Info("invitation declined", zap.String("invitation_id", id.String()))
	return result, nil
}

func (s *Service) List(ctx context.Context, req invitationdomain.ListInvitationRequest) (invitationdomain.ListInvitationResponse, error) {
	filter := invitationdomain.ListFilter{}

	if req.Status != "" {
		status, err := parseStatusFilter(req.Status)
		if err != nil {
			return invitationdomain.ListInvitationResponse{}, err
		}
		filter.Status = status
	}
	if req.JobID != "" {
		jobID, err := s.parseID(req.JobID, invitationdomain.ErrInvalidJob)
		if err != nil {
			return invitationdomain.ListInvitationResponse{}, err
		}
		filter.JobID = jobID
	}

	if actor, ok := actorcontext.FromContext(ctx); ok {
		switch actor.Role {
		case actorcontext.RoleRecruiter:
			filter.RecruiterID = actor.ID
		case actorcontext.RoleCollege:
			filter.CollegeID = actor.ID
		}
	}

	size := req.Size()
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return invitationdomain.ListInvitationResponse{}, err
	}
	filter.AfterID = cursor.AfterID
	filter.Limit = size + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return invitationdomain.ListInvitationResponse{}, err
	}

	resp := invitationdomain.ListInvitationResponse{Invitations: items}
	if len(items) > size {
		resp.Invitations = items[:size]
		resp.HasMore = true
		token, err := pagination.EncodeCursor(pagination.Cursor{
			AfterID: resp.Invitations[size-1].ID,
		})
		if err != nil {
			return invitationdomain.ListInvitationResponse{}, err
		}
		resp.NextPageToken = token
	}
	if resp.Invitations == nil {
		resp.Invitations = []invitationdomain.Invitation{}
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invitationdomain.Invitation, error) {
	invitationID, err := s.parseID(id, invitationdomain.ErrInvalidInvitation)
	if err != nil {
		return invitationdomain.Invitation{}, err
	}
	invitation, err := s.repo.FindByID(ctx, s.db, invitationID)
	if err != nil {
		return invitationdomain.Invitation{}, err
	}
	if invitation == nil {
		return invitationdomain.Invitation{}, invitationdomain.ErrNotFound
	}
	return *invitation, nil
}

func (s *Service) History(ctx context.Context, id string) ([]invitationdomain.NegotiationEntry, error) {
	invitationID, err := s.parseID(id, invitationdomain.ErrInvalidInvitation)
	if err != nil {
		return nil, err
	}
	invitation, err := s.repo.FindByID(ctx, s.db, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, invitationdomain.ErrNotFound
	}
	return s.repo.History(ctx, s.db, invitationID)
}

// loadForResponse locks the invitation and checks the responding actor is
// a party to it. Status checks are left to the caller so idempotent
// re-responses can short-circuit.
func (s *Service) loadForResponse(ctx context.Context, tx *gorm.DB, id snowflake.ID, actor actorcontext.Actor) (*invitationdomain.Invitation, error) {
	invitation, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, invitationdomain.ErrNotFound
	}
	if actor.Role == actorcontext.RoleCollege && actor.ID != 0 && actor.ID != invitation.CollegeID {
		return nil, invitationdomain.ErrUnauthorized
	}
	if actor.Role == actorcontext.RoleRecruiter && actor.ID != 0 && actor.ID != invitation.RecruiterID {
		return nil, invitationdomain.ErrUnauthorized
	}
	return invitation, nil
}

// checkRespondable rejects terminal and already-expired rows.
func (s *Service) checkRespondable(invitation *invitationdomain.Invitation, now time.Time) error {
	if invitation.Status.Terminal() {
		return invitationdomain.ErrInvalidStateTransition
	}
	if !now.Before(invitation.ExpiresAt) {
		return invitationdomain.ErrInvalidStateTransition
	}
	return nil
}

func (s *Service) reload(ctx context.Context, tx *gorm.DB, id snowflake.ID, out *invitationdomain.Invitation) error {
	invitation, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if invitation == nil {
		return invitationdomain.ErrNotFound
	}
	*out = *invitation
	return nil
}

func (s *Service) newEntry(invitationID snowflake.ID, actor, action string, now time.Time, details datatypes.JSONMap) *invitationdomain.NegotiationEntry {
	return newEntry(s.genID, invitationID, actor, action, now, details)
}

func newEntry(genID *snowflake.Node, invitationID snowflake.ID, actor, action string, now time.Time, details datatypes.JSONMap) *invitationdomain.NegotiationEntry {
	return &invitationdomain.NegotiationEntry{
		ID:           genID.Generate(),
		InvitationID: invitationID,
		Actor:        actor,
		Action:       action,
		Details:      details,
		OccurredAt:   now,
		CreatedAt:    now,
	}
}

func (s *Service) actorOrDefault(ctx context.Context, fallback string) actorcontext.Actor {
	if actor, ok := actorcontext.FromContext(ctx); ok {
		return actor
	}
	return actorcontext.Actor{Role: fallback}
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, invalidErr
	}
	return parsed, nil
}

func validateProposedDates(dates []invitationdomain.ProposedDate, now time.Time) error {
	if len(dates) == 0 {
		return invitationdomain.ErrInvalidProposedDates
	}
	for _, date := range dates {
		if date.EndDate.Before(date.StartDate) {
			return invitationdomain.ErrInvalidProposedDates
		}
		if date.StartDate.Before(now) {
			return invitationdomain.ErrInvalidProposedDates
		}
	}
	return nil
}

func parseStatusFilter(value string) (invitationdomain.InvitationStatus, error) {
	status := invitationdomain.InvitationStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case invitationdomain.StatusPending,
		invitationdomain.StatusNegotiating,
		invitationdomain.StatusAccepted,
		invitationdomain.StatusDeclined,
		invitationdomain.StatusExpired:
		return status, nil
	default:
		return "", invitationdomain.ErrInvalidStatus
	}
}
