package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	pkgdb "github.com/talentgrid/campushire/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errAlreadyPlaced signals that a racing allocator assigned the student
// first; the unique index on open assignments is the authority.
var errAlreadyPlaced = errors.New("student already placed")

// AutoAssign places eligible students into the job's scheduled slots.
// Students are taken in filter order, each going to the earliest slot
// with a free seat. The pool-size floor is all-or-nothing: below
// studentLimits.min nothing is written, and a job with no scheduled
// slot at all is rejected outright. Seat reservation and assignment
// insert share one transaction per student, so a failed insert releases
// the seat and two racing calls can never oversubscribe a slot.
func (s *Service) AutoAssign(ctx context.Context, req interviewdomain.AutoAssignRequest) (interviewdomain.AutoAssignResponse, error) {
	jobID, err := s.parseID(req.JobID, interviewdomain.ErrInvalidJob)
	if err != nil {
		return interviewdomain.AutoAssignResponse{}, err
	}

	pool, minStudents, maxStudents, err := s.candidates.CandidatePool(ctx, jobID)
	if err != nil {
		return interviewdomain.AutoAssignResponse{}, err
	}
	if len(pool) < minStudents {
		return interviewdomain.AutoAssignResponse{}, interviewdomain.ErrInsufficientCandidates
	}

	// Re-invocations skip students placed by an earlier call.
	alreadyAssigned, err := s.repo.ListAssignedStudentIDs(ctx, s.db, jobID)
	if err != nil {
		return interviewdomain.AutoAssignResponse{}, err
	}
	assignedSet := make(map[snowflake.ID]struct{}, len(alreadyAssigned))
	for _, id := range alreadyAssigned {
		assignedSet[id] = struct{}{}
	}

	placedTotal, err := s.repo.CountActiveAssignmentsByJob(ctx, s.db, jobID)
	if err != nil {
		return interviewdomain.AutoAssignResponse{}, err
	}

	slots, err := s.repo.ListSlotsByJob(ctx, s.db, jobID)
	if err != nil {
		return interviewdomain.AutoAssignResponse{}, err
	}
	open := make([]interviewdomain.InterviewSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Status == interviewdomain.SlotStatusScheduled {
			open = append(open, slot)
		}
	}
	if len(open) == 0 {
		return interviewdomain.AutoAssignResponse{}, interviewdomain.ErrCapacityExhausted
	}

	now := s.clock.Now()
	resp := interviewdomain.AutoAssignResponse{
		Assigned:   []interviewdomain.SlotAssignment{},
		Unassigned: []snowflake.ID{},
	}

	for _, student := range pool {
		if _, done := assignedSet[student.ID]; done {
			continue
		}
		if maxStudents > 0 && placedTotal >= int64(maxStudents) {
			resp.Unassigned = append(resp.Unassigned, student.ID)
			continue
		}

		assignment, placed, err := s.placeStudent(ctx, jobID, student, open, now)
		if errors.Is(err, errAlreadyPlaced) {
			continue
		}
		if err != nil {
			return interviewdomain.AutoAssignResponse{}, err
		}
		if !placed {
			resp.Unassigned = append(resp.Unassigned, student.ID)
			continue
		}
		resp.Assigned = append(resp.Assigned, assignment)
		placedTotal++
	}

	s.log.Info("auto assignment finished",
		zap.String("job_id", jobID.String()),
		zap.Int("assigned", len(resp.Assigned)),
		zap.Int("unassigned", len(resp.Unassigned)),
	)
	return resp, nil
}

// placeStudent tries slots in chronological order. The conditional
// increment is the only capacity authority: an in-memory count would go
// stale the moment another allocator runs.
func (s *Service) placeStudent(ctx context.Context, jobID snowflake.ID, student eligibilitydomain.StudentProfile, slots []interviewdomain.InterviewSlot, now time.Time) (interviewdomain.SlotAssignment, bool, error) {
	for _, slot := range slots {
		var assignment interviewdomain.SlotAssignment
		reserved := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.repo.TryReserveSeat(ctx, tx, slot.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			reserved = true

			assignment = interviewdomain.SlotAssignment{
				ID:        s.genID.Generate(),
				SlotID:    slot.ID,
				JobID:     jobID,
				StudentID: student.ID,
				Status:    interviewdomain.AssignmentStatusPendingConfirmation,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertAssignment(ctx, tx, &assignment); err != nil {
				if pkgdb.IsDuplicateKeyErr(err) {
					return errAlreadyPlaced
				}
				return err
			}
			return nil
		})
		if err != nil {
			return interviewdomain.SlotAssignment{}, false, err
		}
		if reserved {
			return assignment, true, nil
		}
	}
	return interviewdomain.SlotAssignment{}, false, nil
}
