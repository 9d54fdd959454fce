package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invitationdomain.Repository {
	return &repo{}
}

// lockSuffix returns the row-lock clause for dialects that support it.
// sqlite, used by the test suite, locks the whole database anyway.
func lockSuffix(db *gorm.DB, skipLocked bool) string {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		if skipLocked {
			return " FOR UPDATE SKIP LOCKED"
		}
		return " FOR UPDATE"
	default:
		return ""
	}
}

const invitationColumns = `id, job_id, recruiter_id, college_id, status, message, proposed_dates,
	 visit_start_at, visit_end_at, allowed_courses, min_cgpa, graduation_years, max_backlogs,
	 min_students, max_students, negotiation_round, flagged_for_review, review_reason,
	 tpo_message, counter_dates, sent_at, expires_at, responded_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invitations []*invitationdomain.Invitation) error {
	for _, inv := range invitations {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO invitations (
				id, job_id, recruiter_id, college_id, status, message, proposed_dates,
				visit_start_at, visit_end_at, allowed_courses, min_cgpa, graduation_years,
				max_backlogs, min_students, max_students, negotiation_round, flagged_for_review,
				review_reason, tpo_message, counter_dates, sent_at, expires_at, responded_at,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID,
			inv.JobID,
			inv.RecruiterID,
			inv.CollegeID,
			inv.Status,
			inv.Message,
			inv.ProposedDates,
			inv.VisitStartAt,
			inv.VisitEndAt,
			inv.AllowedCourses,
			inv.MinCGPA,
			inv.GraduationYears,
			inv.MaxBacklogs,
			inv.MinStudents,
			inv.MaxStudents,
			inv.NegotiationRound,
			inv.FlaggedForReview,
			inv.ReviewReason,
			inv.TPOMessage,
			inv.CounterDates,
			inv.SentAt,
			inv.ExpiresAt,
			inv.RespondedAt,
			inv.CreatedAt,
			inv.UpdatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invitationdomain.Invitation, error) {
	return r.findByID(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invitationdomain.Invitation, error) {
	return r.findByID(ctx, db, id, lockSuffix(db, false))
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*invitationdomain.Invitation, error) {
	var invitation invitationdomain.Invitation
	err := db.WithContext(ctx).Raw(
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`+suffix,
		id,
	).Scan(&invitation).Error
	if err != nil {
		return nil, err
	}
	if invitation.ID == 0 {
		return nil, nil
	}
	return &invitation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter invitationdomain.ListFilter) ([]invitationdomain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE 1 = 1`
	args := make([]any, 0, 5)
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.JobID != 0 {
		query += ` AND job_id = ?`
		args = append(args, filter.JobID)
	}
	if filter.RecruiterID != 0 {
		query += ` AND recruiter_id = ?`
		args = append(args, filter.RecruiterID)
	}
	if filter.CollegeID != 0 {
		query += ` AND college_id = ?`
		args = append(args, filter.CollegeID)
	}
	if filter.AfterID != 0 {
		query += ` AND id > ?`
		args = append(args, filter.AfterID)
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var invitations []invitationdomain.Invitation
	err := db.WithContext(ctx).Raw(query, args...).Scan(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repo) FindAcceptedByJob(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]invitationdomain.Invitation, error) {
	var invitations []invitationdomain.Invitation
	err := db.WithContext(ctx).Raw(
		`SELECT `+invitationColumns+`
		 FROM invitations
		 WHERE job_id = ? AND status = ?
		 ORDER BY responded_at ASC, id ASC`,
		jobID,
		invitationdomain.StatusAccepted,
	).Scan(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []invitationdomain.InvitationStatus, update invitationdomain.TransitionUpdate) (bool, error) {
	counterDates := datatypes.JSONSlice[invitationdomain.DateRange](update.CounterDates)
	res := db.WithContext(ctx).Exec(
		`UPDATE invitations SET
			status = ?,
			responded_at = COALESCE(?, responded_at),
			visit_start_at = COALESCE(?, visit_start_at),
			visit_end_at = COALESCE(?, visit_end_at),
			tpo_message = COALESCE(?, tpo_message),
			counter_dates = CASE WHEN ? THEN ? ELSE counter_dates END,
			negotiation_round = negotiation_round + ?,
			updated_at = ?
		 WHERE id = ? AND status IN ?`,
		update.Status,
		update.RespondedAt,
		update.VisitStartAt,
		update.VisitEndAt,
		update.TPOMessage,
		len(update.CounterDates) > 0,
		counterDates,
		update.RoundDelta,
		update.UpdatedAt,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetReviewFlag(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invitations SET flagged_for_review = ?, review_reason = ? WHERE id = ?`,
		true,
		reason,
		id,
	).Error
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, entry *invitationdomain.NegotiationEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invitation_negotiation_entries (
			id, invitation_id, actor, action, details, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.InvitationID,
		entry.Actor,
		entry.Action,
		entry.Details,
		entry.OccurredAt,
		entry.CreatedAt,
	).Error
}

func (r *repo) History(ctx context.Context, db *gorm.DB, invitationID snowflake.ID) ([]invitationdomain.NegotiationEntry, error) {
	var entries []invitationdomain.NegotiationEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, invitation_id, actor, action, details, occurred_at, created_at
		 FROM invitation_negotiation_entries
		 WHERE invitation_id = ?
		 ORDER BY id ASC`,
		invitationID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) LastResponseEntry(ctx context.Context, db *gorm.DB, invitationID snowflake.ID) (*invitationdomain.NegotiationEntry, error) {
	var entry invitationdomain.NegotiationEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, invitation_id, actor, action, details, occurred_at, created_at
		 FROM invitation_negotiation_entries
		 WHERE invitation_id = ? AND action IN ?
		 ORDER BY id DESC
		 LIMIT 1`,
		invitationID,
		[]string{
			invitationdomain.ActionAccepted,
			invitationdomain.ActionDeclined,
			invitationdomain.ActionCountered,
		},
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) FetchDueForExpiry(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var rows []struct {
		ID snowflake.ID
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM invitations
		 WHERE status IN ? AND expires_at <= ?
		 ORDER BY expires_at ASC
		 LIMIT ?`+lockSuffix(tx, true),
		invitationdomain.RespondableStatuses(),
		now,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *repo) CountDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invitations WHERE status IN ? AND expires_at <= ?`,
		invitationdomain.RespondableStatuses(),
		now,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
