package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/talentgrid/campushire/internal/clock"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  eligibilitydomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  eligibilitydomain.Repository
}

func NewService(p ServiceParam) eligibilitydomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("eligibility.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req eligibilitydomain.RegisterStudentRequest) (eligibilitydomain.StudentProfile, error) {
	collegeID, err := snowflake.ParseString(strings.TrimSpace(req.CollegeID))
	if err != nil || collegeID == 0 {
		return eligibilitydomain.StudentProfile{}, eligibilitydomain.ErrInvalidCollege
	}
	if strings.TrimSpace(req.FullName) == "" {
		return eligibilitydomain.StudentProfile{}, eligibilitydomain.ErrInvalidStudent
	}
	if strings.TrimSpace(req.Course) == "" {
		return eligibilitydomain.StudentProfile{}, eligibilitydomain.ErrInvalidCourse
	}
	if req.CGPA != nil && (*req.CGPA < 0 || *req.CGPA > 10) {
		return eligibilitydomain.StudentProfile{}, eligibilitydomain.ErrInvalidCGPA
	}
	if req.GraduationYear <= 0 || req.Backlogs < 0 {
		return eligibilitydomain.StudentProfile{}, eligibilitydomain.ErrInvalidStudent
	}

	now := s.clock.Now()
	student := eligibilitydomain.StudentProfile{
		ID:             s.genID.Generate(),
		CollegeID:      collegeID,
		FullName:       strings.TrimSpace(req.FullName),
		Course:         strings.TrimSpace(req.Course),
		CGPA:           req.CGPA,
		GraduationYear: req.GraduationYear,
		Backlogs:       req.Backlogs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &student); err != nil {
		return eligibilitydomain.StudentProfile{}, err
	}
	return student, nil
}

func (s *Service) Filter(ctx context.Context, req eligibilitydomain.FilterRequest) ([]eligibilitydomain.StudentProfile, error) {
	pool, err := s.repo.ListByColleges(ctx, s.db, req.CollegeIDs)
	if err != nil {
		return nil, err
	}
	return Apply(pool, req.Criteria), nil
}

// Apply returns the qualifying subset of pool in deterministic order:
// CGPA descending, ties broken by id ascending. Determinism keeps
// allocation reproducible across runs on the same data.
func Apply(pool []eligibilitydomain.StudentProfile, criteria eligibilitydomain.Criteria) []eligibilitydomain.StudentProfile {
	eligible := make([]eligibilitydomain.StudentProfile, 0, len(pool))
	for _, student := range pool {
		if Qualifies(student, criteria) {
			eligible = append(eligible, student)
		}
	}

	SortDeterministic(eligible)
	return eligible
}

// SortDeterministic orders students by CGPA descending, ties broken by
// id ascending, in place.
func SortDeterministic(students []eligibilitydomain.StudentProfile) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := cgpaOrZero(students[i]), cgpaOrZero(students[j])
		if a != b {
			return a > b
		}
		return students[i].ID < students[j].ID
	})
}

// Qualifies checks one student against the criteria. Empty course and
// year lists mean "no restriction", matching how recruiters leave
// criteria blank on an invitation.
func Qualifies(student eligibilitydomain.StudentProfile, criteria eligibilitydomain.Criteria) bool {
	if len(criteria.AllowedCourses) > 0 && !courseAllowed(student.Course, criteria.AllowedCourses) {
		return false
	}
	if criteria.MinCGPA > 0 {
		// A missing CGPA disqualifies whenever a floor is set.
		if student.CGPA == nil || *student.CGPA < criteria.MinCGPA {
			return false
		}
	}
	if len(criteria.GraduationYears) > 0 && !yearAllowed(student.GraduationYear, criteria.GraduationYears) {
		return false
	}
	if student.Backlogs > criteria.MaxBacklogs {
		return false
	}
	return true
}

func courseAllowed(course string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(course)) {
			return true
		}
	}
	return false
}

func yearAllowed(year int, allowed []int) bool {
	for _, candidate := range allowed {
		if candidate == year {
			return true
		}
	}
	return false
}

func cgpaOrZero(student eligibilitydomain.StudentProfile) float64 {
	if student.CGPA == nil {
		return 0
	}
	return *student.CGPA
}
