package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() interviewdomain.Repository {
	return &repo{}
}

func lockSuffix(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return " FOR UPDATE"
	default:
		return ""
	}
}

const slotColumns = `id, job_id, start_at, duration_minutes, type, location_type, location_details,
	 meeting_link, max_candidates, assigned_count, status, created_at, updated_at`

const assignmentColumns = `id, slot_id, job_id, student_id, status, joined_at,
	 feedback_rating, feedback_comments, feedback_at, created_at, updated_at`

func (r *repo) InsertSlot(ctx context.Context, db *gorm.DB, slot *interviewdomain.InterviewSlot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO interview_slots (
			id, job_id, start_at, duration_minutes, type, location_type, location_details,
			meeting_link, max_candidates, assigned_count, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID,
		slot.JobID,
		slot.StartAt,
		slot.DurationMinutes,
		slot.Type,
		slot.LocationType,
		slot.LocationDetails,
		slot.MeetingLink,
		slot.MaxCandidates,
		slot.AssignedCount,
		slot.Status,
		slot.CreatedAt,
		slot.UpdatedAt,
	).Error
}

func (r *repo) FindSlotByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*interviewdomain.InterviewSlot, error) {
	return r.findSlot(ctx, db, id, "")
}

func (r *repo) FindSlotByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*interviewdomain.InterviewSlot, error) {
	return r.findSlot(ctx, db, id, lockSuffix(db))
}

func (r *repo) findSlot(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*interviewdomain.InterviewSlot, error) {
	var slot interviewdomain.InterviewSlot
	err := db.WithContext(ctx).Raw(
		`SELECT `+slotColumns+` FROM interview_slots WHERE id = ?`+suffix,
		id,
	).Scan(&slot).Error
	if err != nil {
		return nil, err
	}
	if slot.ID == 0 {
		return nil, nil
	}
	return &slot, nil
}

func (r *repo) ListSlotsByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]interviewdomain.InterviewSlot, error) {
	var slots []interviewdomain.InterviewSlot
	err := db.WithContext(ctx).Raw(
		`SELECT `+slotColumns+`
		 FROM interview_slots
		 WHERE job_id = ?
		 ORDER BY start_at ASC, id ASC`,
		jobID,
	).Scan(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repo) TransitionSlot(ctx context.Context, db *gorm.DB, id snowflake.ID, from []interviewdomain.SlotStatus, to interviewdomain.SlotStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE interview_slots SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TryReserveSeat is the single capacity check-and-increment. The guard
// lives in the WHERE clause so two racing allocators can never both take
// the last seat.
func (r *repo) TryReserveSeat(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE interview_slots
		 SET assigned_count = assigned_count + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND assigned_count < max_candidates`,
		now,
		id,
		interviewdomain.SlotStatusScheduled,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ReleaseSeats(ctx context.Context, db *gorm.DB, id snowflake.ID, count int64, now time.Time) error {
	if count <= 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE interview_slots
		 SET assigned_count = assigned_count - ?, updated_at = ?
		 WHERE id = ? AND assigned_count >= ?`,
		count,
		now,
		id,
		count,
	).Error
}

func (r *repo) InsertAssignment(ctx context.Context, db *gorm.DB, assignment *interviewdomain.SlotAssignment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO slot_assignments (
			id, slot_id, job_id, student_id, status, joined_at,
			feedback_rating, feedback_comments, feedback_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.SlotID,
		assignment.JobID,
		assignment.StudentID,
		assignment.Status,
		assignment.JoinedAt,
		assignment.FeedbackRating,
		assignment.FeedbackComments,
		assignment.FeedbackAt,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	).Error
}

func (r *repo) FindAssignmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*interviewdomain.SlotAssignment, error) {
	return r.findAssignment(ctx, db, id, "")
}

func (r *repo) FindAssignmentByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*interviewdomain.SlotAssignment, error) {
	return r.findAssignment(ctx, db, id, lockSuffix(db))
}

func (r *repo) findAssignment(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*interviewdomain.SlotAssignment, error) {
	var assignment interviewdomain.SlotAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT `+assignmentColumns+` FROM slot_assignments WHERE id = ?`+suffix,
		id,
	).Scan(&assignment).Error
	if err != nil {
		return nil, err
	}
	if assignment.ID == 0 {
		return nil, nil
	}
	return &assignment, nil
}

func (r *repo) ListAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID) ([]interviewdomain.SlotAssignment, error) {
	var assignments []interviewdomain.SlotAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT `+assignmentColumns+`
		 FROM slot_assignments
		 WHERE slot_id = ?
		 ORDER BY id ASC`,
		slotID,
	).Scan(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) ListAssignedStudentIDs(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]snowflake.ID, error) {
	var rows []struct {
		StudentID snowflake.ID
	}
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT student_id FROM slot_assignments
		 WHERE job_id = ? AND status <> ?`,
		jobID,
		interviewdomain.AssignmentStatusCancelled,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StudentID)
	}
	return ids, nil
}

func (r *repo) CountActiveAssignmentsByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM slot_assignments WHERE job_id = ? AND status <> ?`,
		jobID,
		interviewdomain.AssignmentStatusCancelled,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) TransitionAssignment(ctx context.Context, db *gorm.DB, id snowflake.ID, from []interviewdomain.AssignmentStatus, to interviewdomain.AssignmentStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE slot_assignments SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkJoined(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE slot_assignments
		 SET status = ?, joined_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		interviewdomain.AssignmentStatusJoined,
		now,
		now,
		id,
		interviewdomain.AssignmentStatusConfirmed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetFeedback(ctx context.Context, db *gorm.DB, id snowflake.ID, rating int, comments string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE slot_assignments
		 SET feedback_rating = ?, feedback_comments = ?, feedback_at = ?, updated_at = ?
		 WHERE id = ? AND feedback_rating IS NULL`,
		rating,
		comments,
		now,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CancelAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE slot_assignments
		 SET status = ?, updated_at = ?
		 WHERE slot_id = ? AND status NOT IN ?`,
		interviewdomain.AssignmentStatusCancelled,
		now,
		slotID,
		[]interviewdomain.AssignmentStatus{
			interviewdomain.AssignmentStatusCompleted,
			interviewdomain.AssignmentStatusCancelled,
		},
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) CompleteJoinedAssignmentsBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE slot_assignments
		 SET status = ?, updated_at = ?
		 WHERE slot_id = ? AND status = ?`,
		interviewdomain.AssignmentStatusCompleted,
		now,
		slotID,
		interviewdomain.AssignmentStatusJoined,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
