package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentgrid/campushire/internal/clock"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	"github.com/talentgrid/campushire/internal/eligibility/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ptr(v float64) *float64 { return &v }

func student(id int64, course string, cgpa *float64, year, backlogs int) eligibilitydomain.StudentProfile {
	return eligibilitydomain.StudentProfile{
		ID:             snowflake.ID(id),
		CollegeID:      1,
		FullName:       "student",
		Course:         course,
		CGPA:           cgpa,
		GraduationYear: year,
		Backlogs:       backlogs,
	}
}

func TestApplyMatchesExactSubsetOrdered(t *testing.T) {
	pool := []eligibilitydomain.StudentProfile{
		student(1, "CS", ptr(8.2), 2025, 0),
		student(2, "IT", ptr(9.1), 2025, 0),
		student(3, "ME", ptr(9.8), 2025, 0),  // wrong course
		student(4, "CS", ptr(6.9), 2025, 0),  // below floor
		student(5, "CS", ptr(7.5), 2024, 0),  // wrong year
		student(6, "IT", ptr(8.2), 2025, 0),  // ties with 1 on CGPA
		student(7, "CS", nil, 2025, 0),       // missing CGPA
		student(8, "CS", ptr(9.9), 2025, 3),  // too many backlogs
	}
	criteria := eligibilitydomain.Criteria{
		AllowedCourses:  []string{"CS", "IT"},
		MinCGPA:         7.0,
		GraduationYears: []int{2025},
		MaxBacklogs:     0,
	}

	got := Apply(pool, criteria)

	ids := make([]snowflake.ID, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	// CGPA descending, id ascending on the 8.2 tie.
	assert.Equal(t, []snowflake.ID{2, 1, 6}, ids)
}

func TestApplyCourseMatchIsCaseInsensitive(t *testing.T) {
	pool := []eligibilitydomain.StudentProfile{
		student(1, "cse", ptr(8.0), 2026, 0),
		student(2, "CsE", ptr(7.5), 2026, 0),
		student(3, "ECE", ptr(9.0), 2026, 0),
	}
	criteria := eligibilitydomain.Criteria{AllowedCourses: []string{"CSE"}}

	got := Apply(pool, criteria)
	require.Len(t, got, 2)
}

func TestApplyMissingCGPA(t *testing.T) {
	pool := []eligibilitydomain.StudentProfile{
		student(1, "CS", nil, 2026, 0),
		student(2, "CS", ptr(5.0), 2026, 0),
	}

	// With a floor the missing CGPA disqualifies.
	got := Apply(pool, eligibilitydomain.Criteria{MinCGPA: 4.0})
	require.Len(t, got, 1)
	assert.Equal(t, snowflake.ID(2), got[0].ID)

	// Without a floor both qualify; the missing CGPA sorts last.
	got = Apply(pool, eligibilitydomain.Criteria{})
	require.Len(t, got, 2)
	assert.Equal(t, snowflake.ID(2), got[0].ID)
	assert.Equal(t, snowflake.ID(1), got[1].ID)
}

func TestApplyIsDeterministic(t *testing.T) {
	pool := []eligibilitydomain.StudentProfile{
		student(5, "CS", ptr(8.0), 2026, 0),
		student(3, "CS", ptr(8.0), 2026, 0),
		student(9, "CS", ptr(8.0), 2026, 0),
	}
	criteria := eligibilitydomain.Criteria{AllowedCourses: []string{"CS"}}

	first := Apply(pool, criteria)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Apply(pool, criteria))
	}
	assert.Equal(t, snowflake.ID(3), first[0].ID)
}

func setupStudentDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS student_profiles (
		id BIGINT PRIMARY KEY,
		college_id BIGINT NOT NULL,
		full_name TEXT NOT NULL,
		course TEXT NOT NULL,
		cgpa REAL,
		graduation_year INTEGER NOT NULL,
		backlogs INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)
	return db
}

func TestRegisterAndFilter(t *testing.T) {
	db := setupStudentDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})

	collegeID := node.Generate()
	for _, tc := range []struct {
		course string
		cgpa   *float64
		year   int
	}{
		{"CSE", ptr(8.4), 2026},
		{"CSE", ptr(7.1), 2026},
		{"ECE", ptr(9.0), 2026},
		{"CSE", ptr(6.0), 2026},
	} {
		_, err := svc.Register(context.Background(), eligibilitydomain.RegisterStudentRequest{
			CollegeID:      collegeID.String(),
			FullName:       "candidate",
			Course:         tc.course,
			CGPA:           tc.cgpa,
			GraduationYear: tc.year,
		})
		require.NoError(t, err)
	}

	got, err := svc.Filter(context.Background(), eligibilitydomain.FilterRequest{
		CollegeIDs: []snowflake.ID{collegeID},
		Criteria: eligibilitydomain.Criteria{
			AllowedCourses:  []string{"cse"},
			MinCGPA:         7.0,
			GraduationYears: []int{2026},
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 8.4, *got[0].CGPA)
	assert.Equal(t, 7.1, *got[1].CGPA)
}

func TestRegisterValidation(t *testing.T) {
	db := setupStudentDB(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  repository.Provide(),
	})

	_, err = svc.Register(context.Background(), eligibilitydomain.RegisterStudentRequest{
		CollegeID: "bogus", FullName: "x", Course: "CSE", GraduationYear: 2026,
	})
	assert.ErrorIs(t, err, eligibilitydomain.ErrInvalidCollege)

	_, err = svc.Register(context.Background(), eligibilitydomain.RegisterStudentRequest{
		CollegeID: node.Generate().String(), FullName: "x", Course: " ", GraduationYear: 2026,
	})
	assert.ErrorIs(t, err, eligibilitydomain.ErrInvalidCourse)

	_, err = svc.Register(context.Background(), eligibilitydomain.RegisterStudentRequest{
		CollegeID: node.Generate().String(), FullName: "x", Course: "CSE", CGPA: ptr(11), GraduationYear: 2026,
	})
	assert.ErrorIs(t, err, eligibilitydomain.ErrInvalidCGPA)
}
