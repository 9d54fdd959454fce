// Package domain holds the student registry records the eligibility
// filter and the slot allocator consume.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// StudentProfile is the placement-relevant projection of a student.
// CGPA is a pointer: colleges upload rosters before grades are final,
// and a missing CGPA must be distinguishable from 0.
type StudentProfile struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	CollegeID      snowflake.ID `gorm:"not null;index" json:"college_id"`
	FullName       string       `gorm:"type:text;not null" json:"full_name"`
	Course         string       `gorm:"type:text;not null" json:"course"`
	CGPA           *float64     `gorm:"column:cgpa" json:"cgpa,omitempty"`
	GraduationYear int          `gorm:"not null" json:"graduation_year"`
	Backlogs       int          `gorm:"not null;default:0" json:"backlogs"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (StudentProfile) TableName() string { return "student_profiles" }

// Criteria are the qualification rules attached to an invitation.
type Criteria struct {
	AllowedCourses  []string `json:"allowed_courses"`
	MinCGPA         float64  `json:"min_cgpa"`
	GraduationYears []int    `json:"graduation_years"`
	MaxBacklogs     int      `json:"max_backlogs"`
}

type RegisterStudentRequest struct {
	CollegeID      string   `json:"college_id"`
	FullName       string   `json:"full_name"`
	Course         string   `json:"course"`
	CGPA           *float64 `json:"cgpa,omitempty"`
	GraduationYear int      `json:"graduation_year"`
	Backlogs       int      `json:"backlogs"`
}

type FilterRequest struct {
	CollegeIDs []snowflake.ID
	Criteria   Criteria
}

type Service interface {
	Register(context.Context, RegisterStudentRequest) (StudentProfile, error)
	// Filter returns the qualifying students across the given colleges in
	// deterministic order: CGPA descending, then id ascending.
	Filter(context.Context, FilterRequest) ([]StudentProfile, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, student *StudentProfile) error
	ListByColleges(ctx context.Context, db *gorm.DB, collegeIDs []snowflake.ID) ([]StudentProfile, error)
}

var (
	ErrInvalidStudent = errors.New("invalid_student")
	ErrInvalidCollege = errors.New("invalid_college")
	ErrInvalidCourse  = errors.New("invalid_course")
	ErrInvalidCGPA    = errors.New("invalid_cgpa")
)
