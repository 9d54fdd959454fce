package domain

import (
	"context"
	"errors"
	"time"

	"github.com/talentgrid/campushire/pkg/db/pagination"
)

// Response actions accepted by Respond.
const (
	ResponseActionAccept  = "accept"
	ResponseActionDecline = "decline"
	ResponseActionCounter = "counter"
)

type CreateInvitationRequest struct {
	JobID           string         `json:"job_id"`
	CollegeIDs      []string       `json:"college_ids"`
	Message         string         `json:"message"`
	ProposedDates   []ProposedDate `json:"proposed_dates"`
	ExpiresInDays   int            `json:"expires_in_days"`
	AllowedCourses  []string       `json:"allowed_courses"`
	MinCGPA         float64        `json:"min_cgpa"`
	GraduationYears []int          `json:"graduation_years"`
	MaxBacklogs     int            `json:"max_backlogs"`
	MinStudents     int            `json:"min_students"`
	MaxStudents     int            `json:"max_students"`
}

type AcceptInvitationRequest struct {
	InvitationID string     `json:"invitation_id"`
	Window       *DateRange `json:"confirmed_window"`
	Message      string     `json:"message"`
}

type DeclineInvitationRequest struct {
	InvitationID string `json:"invitation_id"`
	Reason       string `json:"reason"`
}

type CounterInvitationRequest struct {
	InvitationID     string      `json:"invitation_id"`
	AlternativeDates []DateRange `json:"alternative_dates"`
	Message          string      `json:"message"`
}

// RespondInvitationRequest is the single response surface the UI calls;
// exactly one payload branch is read depending on Action.
type RespondInvitationRequest struct {
	InvitationID     string      `json:"invitation_id"`
	Action           string      `json:"action"`
	Window           *DateRange  `json:"confirmed_window,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	AlternativeDates []DateRange `json:"alternative_dates,omitempty"`
	Message          string      `json:"message,omitempty"`
}

type ListInvitationRequest struct {
	pagination.Pagination
	Status string
	JobID  string
}

type ListInvitationResponse struct {
	pagination.PageInfo
	Invitations []Invitation `json:"invitations"`
}

type Service interface {
	Create(context.Context, CreateInvitationRequest) ([]Invitation, error)
	Respond(context.Context, RespondInvitationRequest) (Invitation, error)
	Accept(context.Context, AcceptInvitationRequest) (Invitation, error)
	Decline(context.Context, DeclineInvitationRequest) (Invitation, error)
	Counter(context.Context, CounterInvitationRequest) (Invitation, error)
	List(context.Context, ListInvitationRequest) (ListInvitationResponse, error)
	GetByID(context.Context, string) (Invitation, error)
	History(context.Context, string) ([]NegotiationEntry, error)
}

// ExpirySweeper is the reaper-facing surface: claim due invitations and
// expire them, re-validating status inside the claiming transaction.
type ExpirySweeper interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (expired int, remaining int, err error)
}

var (
	ErrNotFound                  = errors.New("invitation_not_found")
	ErrInvalidInvitation         = errors.New("invalid_invitation")
	ErrInvalidJob                = errors.New("invalid_job")
	ErrInvalidCollege            = errors.New("invalid_college")
	ErrInvalidProposedDates      = errors.New("invalid_proposed_dates")
	ErrInvalidExpiresInDays      = errors.New("invalid_expires_in_days")
	ErrInvalidStudentLimits      = errors.New("invalid_student_limits")
	ErrInvalidVisitWindow        = errors.New("invalid_visit_window")
	ErrInvalidDeclineReason      = errors.New("invalid_decline_reason")
	ErrInvalidAlternativeDates   = errors.New("invalid_alternative_dates")
	ErrInvalidResponseAction     = errors.New("invalid_response_action")
	ErrInvalidStateTransition    = errors.New("invalid_state_transition")
	ErrNegotiationLimitExceeded  = errors.New("negotiation_limit_exceeded")
	ErrInvalidStatus             = errors.New("invalid_status")
	ErrUnauthorized              = errors.New("unauthorized_actor")
	ErrInvalidEligibilityCourses = errors.New("invalid_eligibility_courses")
)
