package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TransitionUpdate carries the column values applied by a compare-and-swap
// status transition.
type TransitionUpdate struct {
	Status       InvitationStatus
	RespondedAt  *time.Time
	VisitStartAt *time.Time
	VisitEndAt   *time.Time
	TPOMessage   *string
	CounterDates []DateRange
	RoundDelta   int
	UpdatedAt    time.Time
}

type ListFilter struct {
	Status      InvitationStatus
	JobID       snowflake.ID
	RecruiterID snowflake.ID
	CollegeID   snowflake.ID
	AfterID     snowflake.ID
	Limit       int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invitations []*Invitation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invitation, error)
	// FindByIDForUpdate locks the row for the duration of the surrounding
	// transaction on dialects that support it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invitation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invitation, error)
	FindAcceptedByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]Invitation, error)

	// Transition applies a status change guarded by the allowed source
	// states; it reports whether a row was changed.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []InvitationStatus, update TransitionUpdate) (bool, error)
	SetReviewFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error

	AppendHistory(ctx context.Context, db *gorm.DB, entry *NegotiationEntry) error
	History(ctx context.Context, db *gorm.DB, invitationID snowflake.ID) ([]NegotiationEntry, error)
	LastResponseEntry(ctx context.Context, db *gorm.DB, invitationID snowflake.ID) (*NegotiationEntry, error)

	// FetchDueForExpiry claims a batch of invitations whose expiry has
	// passed, skipping rows locked by concurrent sweeps.
	FetchDueForExpiry(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
	CountDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
