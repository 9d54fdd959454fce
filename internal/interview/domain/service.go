package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	"gorm.io/gorm"
)

type SlotLocation struct {
	Type        string `json:"type"`
	Details     string `json:"details"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

type CreateSlotRequest struct {
	JobID           string       `json:"job_id"`
	StartAt         time.Time    `json:"start_at"`
	DurationMinutes int          `json:"duration_minutes"`
	Type            string       `json:"type"`
	Location        SlotLocation `json:"location"`
	MaxCandidates   int          `json:"max_candidates"`
}

type UpdateSlotStatusRequest struct {
	SlotID string `json:"slot_id"`
	Status string `json:"status"`
}

type AutoAssignRequest struct {
	JobID string `json:"job_id"`
}

type AutoAssignResponse struct {
	Assigned   []SlotAssignment `json:"assigned"`
	Unassigned []snowflake.ID   `json:"unassigned"`
}

type SubmitFeedbackRequest struct {
	AssignmentID string `json:"assignment_id"`
	Rating       int    `json:"rating"`
	Comments     string `json:"comments"`
}

type Service interface {
	CreateSlot(context.Context, CreateSlotRequest) (InterviewSlot, error)
	GetSlot(context.Context, string) (InterviewSlot, error)
	ListSlots(ctx context.Context, jobID string) ([]InterviewSlot, error)
	UpdateSlotStatus(context.Context, UpdateSlotStatusRequest) (InterviewSlot, error)

	AutoAssign(context.Context, AutoAssignRequest) (AutoAssignResponse, error)

	ListAssignments(ctx context.Context, slotID string) ([]SlotAssignment, error)
	Confirm(ctx context.Context, assignmentID string) (SlotAssignment, error)
	Join(ctx context.Context, assignmentID string) (SlotAssignment, error)
	SubmitFeedback(context.Context, SubmitFeedbackRequest) (SlotAssignment, error)
}

type Repository interface {
	InsertSlot(ctx context.Context, db *gorm.DB, slot *InterviewSlot) error
	FindSlotByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InterviewSlot, error)
	FindSlotByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InterviewSlot, error)
	// ListSlotsByJob returns the job's slots in chronological order.
	ListSlotsByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]InterviewSlot, error)

	// TransitionSlot applies a status change guarded by the allowed source
	// states; it reports whether a row was changed.
	TransitionSlot(ctx context.Context, db *gorm.DB, id snowflake.ID, from []SlotStatus, to SlotStatus, now time.Time) (bool, error)
	// TryReserveSeat atomically increments assigned_count iff the slot is
	// still scheduled and below capacity.
	TryReserveSeat(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// ReleaseSeats returns seats freed by cancelled assignments to the
	// slot's counter.
	ReleaseSeats(ctx context.Context, db *gorm.DB, id snowflake.ID, count int64, now time.Time) error

	InsertAssignment(ctx context.Context, db *gorm.DB, assignment *SlotAssignment) error
	FindAssignmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SlotAssignment, error)
	FindAssignmentByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SlotAssignment, error)
	ListAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID) ([]SlotAssignment, error)
	ListAssignedStudentIDs(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]snowflake.ID, error)
	CountActiveAssignmentsByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (int64, error)

	TransitionAssignment(ctx context.Context, db *gorm.DB, id snowflake.ID, from []AssignmentStatus, to AssignmentStatus, now time.Time) (bool, error)
	MarkJoined(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// SetFeedback writes feedback iff none exists yet.
	SetFeedback(ctx context.Context, db *gorm.DB, id snowflake.ID, rating int, comments string, now time.Time) (bool, error)
	// CancelAssignmentsBySlot cancels every non-completed assignment under
	// the slot and returns how many rows changed.
	CancelAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID, now time.Time) (int64, error)
	CompleteJoinedAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID, now time.Time) (int64, error)
}

// CandidateSource resolves the eligible candidate pool and the student
// limits for a job. The invitation domain backs it in production.
type CandidateSource interface {
	HasAccepted(ctx context.Context, jobID snowflake.ID) (bool, error)
	CandidatePool(ctx context.Context, jobID snowflake.ID) (pool []eligibilitydomain.StudentProfile, minStudents, maxStudents int, err error)
}

var (
	ErrSlotNotFound             = errors.New("slot_not_found")
	ErrAssignmentNotFound       = errors.New("assignment_not_found")
	ErrInvalidJob               = errors.New("invalid_job")
	ErrInvalidSlotSpec          = errors.New("invalid_slot_spec")
	ErrInvalidSlotStatus        = errors.New("invalid_slot_status")
	ErrInvalidStateTransition   = errors.New("invalid_state_transition")
	ErrNoAcceptedInvitation     = errors.New("no_accepted_invitation")
	ErrInsufficientCandidates   = errors.New("insufficient_candidates")
	ErrCapacityExhausted        = errors.New("capacity_exhausted")
	ErrSlotCancelled            = errors.New("slot_cancelled")
	ErrSlotNotInProgress        = errors.New("slot_not_in_progress")
	ErrNotConfirmed             = errors.New("assignment_not_confirmed")
	ErrJoinWindowClosed         = errors.New("join_window_closed")
	ErrFeedbackAlreadySubmitted = errors.New("feedback_already_submitted")
	ErrInvalidFeedback          = errors.New("invalid_feedback")
	ErrInvalidAssignment        = errors.New("invalid_assignment")
	ErrInvalidSlot              = errors.New("invalid_slot")
)
