package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	eligibilityservice "github.com/talentgrid/campushire/internal/eligibility/service"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// CandidateSource feeds the slot allocator from accepted invitations:
// each accepted college contributes the students that pass that
// invitation's criteria.
type CandidateSource struct {
	db          *gorm.DB
	repo        invitationdomain.Repository
	eligibility eligibilitydomain.Service
}

type CandidateSourceParam struct {
	fx.In

	DB          *gorm.DB
	Repo        invitationdomain.Repository
	Eligibility eligibilitydomain.Service
}

func NewCandidateSource(p CandidateSourceParam) interviewdomain.CandidateSource {
	return &CandidateSource{
		db:          p.DB,
		repo:        p.Repo,
		eligibility: p.Eligibility,
	}
}

func (c *CandidateSource) HasAccepted(ctx context.Context, jobID snowflake.ID) (bool, error) {
	accepted, err := c.repo.FindAcceptedByJob(ctx, c.db, jobID)
	if err != nil {
		return false, err
	}
	return len(accepted) > 0, nil
}

// CandidatePool unions the eligible students of every accepted college,
// re-sorted so the merged pool keeps the deterministic allocation order.
// Student limits come from the earliest-accepted invitation; the fan-out
// on create writes identical limits to every college anyway.
func (c *CandidateSource) CandidatePool(ctx context.Context, jobID snowflake.ID) ([]eligibilitydomain.StudentProfile, int, int, error) {
	accepted, err := c.repo.FindAcceptedByJob(ctx, c.db, jobID)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(accepted) == 0 {
		return nil, 0, 0, interviewdomain.ErrNoAcceptedInvitation
	}

	seen := make(map[snowflake.ID]struct{})
	pool := make([]eligibilitydomain.StudentProfile, 0)
	for _, invitation := range accepted {
		criteria := invitation.Criteria()
		eligible, err := c.eligibility.Filter(ctx, eligibilitydomain.FilterRequest{
			CollegeIDs: []snowflake.ID{invitation.CollegeID},
			Criteria: eligibilitydomain.Criteria{
				AllowedCourses:  criteria.AllowedCourses,
				MinCGPA:         criteria.MinCGPA,
				GraduationYears: criteria.GraduationYears,
				MaxBacklogs:     criteria.MaxBacklogs,
			},
		})
		if err != nil {
			return nil, 0, 0, err
		}
		for _, student := range eligible {
			if _, dup := seen[student.ID]; dup {
				continue
			}
			seen[student.ID] = struct{}{}
			pool = append(pool, student)
		}
	}

	eligibilityservice.SortDeterministic(pool)
	return pool, accepted[0].MinStudents, accepted[0].MaxStudents, nil
}
