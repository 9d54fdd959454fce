// Package domain contains interview slot and assignment records plus the
// service contracts for capacity-constrained allocation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SlotStatus represents lifecycle states for an interview slot.
type SlotStatus string

const (
	SlotStatusScheduled  SlotStatus = "SCHEDULED"
	SlotStatusInProgress SlotStatus = "IN_PROGRESS"
	SlotStatusCompleted  SlotStatus = "COMPLETED"
	SlotStatusCancelled  SlotStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SlotStatus) Terminal() bool {
	return s == SlotStatusCompleted || s == SlotStatusCancelled
}

// Slot interview formats.
const (
	SlotTypeTechnical       = "technical"
	SlotTypeHR              = "hr"
	SlotTypeGroupDiscussion = "group_discussion"
	SlotTypeCodingTest      = "coding_test"
)

// Slot location kinds.
const (
	LocationOnline  = "online"
	LocationOffline = "offline"
)

// InterviewSlot is one timed interview block with a candidate capacity.
// AssignedCount is the capacity token: it only moves through atomic
// conditional updates so concurrent allocators can never oversubscribe.
type InterviewSlot struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	JobID           snowflake.ID `gorm:"not null;index" json:"job_id"`
	StartAt         time.Time    `gorm:"not null;index" json:"start_at"`
	DurationMinutes int          `gorm:"not null" json:"duration_minutes"`
	Type            string       `gorm:"type:text;not null" json:"type"`
	LocationType    string       `gorm:"type:text;not null" json:"location_type"`
	LocationDetails string       `gorm:"type:text" json:"location_details"`
	MeetingLink     string       `gorm:"type:text" json:"meeting_link,omitempty"`
	MaxCandidates   int          `gorm:"not null" json:"max_candidates"`
	AssignedCount   int          `gorm:"not null;default:0" json:"assigned_count"`
	Status          SlotStatus   `gorm:"type:text;not null" json:"status"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (InterviewSlot) TableName() string { return "interview_slots" }

// EndAt is the scheduled end of the slot.
func (s InterviewSlot) EndAt() time.Time {
	return s.StartAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// AssignmentStatus represents the per-student sub-lifecycle inside a slot.
type AssignmentStatus string

const (
	AssignmentStatusPendingConfirmation AssignmentStatus = "PENDING_CONFIRMATION"
	AssignmentStatusConfirmed           AssignmentStatus = "CONFIRMED"
	AssignmentStatusJoined              AssignmentStatus = "JOINED"
	AssignmentStatusCompleted           AssignmentStatus = "COMPLETED"
	AssignmentStatusCancelled           AssignmentStatus = "CANCELLED"
)

// SlotAssignment links one student to one slot. Feedback fields are
// written exactly once after the slot completes.
type SlotAssignment struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	SlotID    snowflake.ID     `gorm:"not null;index" json:"slot_id"`
	JobID     snowflake.ID     `gorm:"not null;index" json:"job_id"`
	StudentID snowflake.ID     `gorm:"not null;index" json:"student_id"`
	Status    AssignmentStatus `gorm:"type:text;not null" json:"status"`

	JoinedAt *time.Time `gorm:"" json:"joined_at,omitempty"`

	FeedbackRating   *int       `gorm:"" json:"feedback_rating,omitempty"`
	FeedbackComments string     `gorm:"type:text" json:"feedback_comments,omitempty"`
	FeedbackAt       *time.Time `gorm:"" json:"feedback_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SlotAssignment) TableName() string { return "slot_assignments" }
