// Package domain contains persistence models for campus-visit invitations
// and their negotiation trail.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvitationStatus represents lifecycle states for an invitation.
type InvitationStatus string

const (
	StatusPending     InvitationStatus = "PENDING"
	StatusNegotiating InvitationStatus = "NEGOTIATING"
	StatusAccepted    InvitationStatus = "ACCEPTED"
	StatusDeclined    InvitationStatus = "DECLINED"
	StatusExpired     InvitationStatus = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s InvitationStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusExpired:
		return true
	default:
		return false
	}
}

// RespondableStatuses are the states accept/decline/counter operate on.
func RespondableStatuses() []InvitationStatus {
	return []InvitationStatus{StatusPending, StatusNegotiating}
}

// ProposedDate is one visit-date option offered by the recruiter.
type ProposedDate struct {
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	IsFlexible bool      `json:"is_flexible"`
}

// DateRange is a concrete start/end pair, used for counter-proposals and
// the confirmed campus visit window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Invitation captures a recruiter's campus-drive proposal to one college.
type Invitation struct {
	ID          snowflake.ID     `gorm:"primaryKey" json:"id"`
	JobID       snowflake.ID     `gorm:"not null;index" json:"job_id"`
	RecruiterID snowflake.ID     `gorm:"not null;index" json:"recruiter_id"`
	CollegeID   snowflake.ID     `gorm:"not null;index" json:"college_id"`
	Status      InvitationStatus `gorm:"type:text;not null" json:"status"`
	Message     string           `gorm:"type:text" json:"message"`

	ProposedDates datatypes.JSONSlice[ProposedDate] `gorm:"not null" json:"proposed_dates"`

	// Confirmed campus visit window, filled only on acceptance.
	VisitStartAt *time.Time `gorm:"" json:"visit_start_at,omitempty"`
	VisitEndAt   *time.Time `gorm:"" json:"visit_end_at,omitempty"`

	AllowedCourses  datatypes.JSONSlice[string] `gorm:"" json:"allowed_courses"`
	MinCGPA         float64                     `gorm:"column:min_cgpa;not null;default:0" json:"min_cgpa"`
	GraduationYears datatypes.JSONSlice[int]    `gorm:"" json:"graduation_years"`
	MaxBacklogs     int                         `gorm:"not null;default:0" json:"max_backlogs"`

	MinStudents int `gorm:"not null;default:0" json:"min_students"`
	MaxStudents int `gorm:"not null;default:0" json:"max_students"`

	NegotiationRound int    `gorm:"not null;default:0" json:"negotiation_round"`
	FlaggedForReview bool   `gorm:"not null;default:false" json:"flagged_for_review"`
	ReviewReason     string `gorm:"type:text" json:"review_reason,omitempty"`

	// Latest placement-officer reply; counter dates hold the most recent
	// counter-proposal.
	TPOMessage   string                         `gorm:"column:tpo_message;type:text" json:"tpo_message,omitempty"`
	CounterDates datatypes.JSONSlice[DateRange] `gorm:"" json:"counter_dates,omitempty"`

	SentAt      time.Time  `gorm:"not null" json:"sent_at"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	RespondedAt *time.Time `gorm:"" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// EligibilityCriteria is the projection the filter consumes.
type EligibilityCriteria struct {
	AllowedCourses  []string `json:"allowed_courses"`
	MinCGPA         float64  `json:"min_cgpa"`
	GraduationYears []int    `json:"graduation_years"`
	MaxBacklogs     int      `json:"max_backlogs"`
}

// Criteria returns the invitation's eligibility rules.
func (i Invitation) Criteria() EligibilityCriteria {
	return EligibilityCriteria{
		AllowedCourses:  i.AllowedCourses,
		MinCGPA:         i.MinCGPA,
		GraduationYears: i.GraduationYears,
		MaxBacklogs:     i.MaxBacklogs,
	}
}

// Negotiation actors recorded in the history trail.
const (
	ActorRecruiter = "recruiter"
	ActorCollege   = "college"
	ActorSystem    = "system"
)

// Negotiation actions recorded in the history trail.
const (
	ActionCreated   = "created"
	ActionAccepted  = "accepted"
	ActionDeclined  = "declined"
	ActionCountered = "countered"
	ActionExpired   = "expired"
	ActionFlagged   = "flagged_for_review"
)

// NegotiationEntry is one append-only audit record on an invitation.
// Rows are never updated or deleted.
type NegotiationEntry struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	InvitationID snowflake.ID      `gorm:"not null;index" json:"invitation_id"`
	Actor        string            `gorm:"type:text;not null" json:"actor"`
	Action       string            `gorm:"type:text;not null" json:"action"`
	Details      datatypes.JSONMap `gorm:"" json:"details,omitempty"`
	OccurredAt   time.Time         `gorm:"not null;index" json:"occurred_at"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (NegotiationEntry) TableName() string { return "invitation_negotiation_entries" }
