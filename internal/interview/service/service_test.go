package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	"github.com/talentgrid/campushire/internal/interview/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stub candidate source: the allocator only cares about the ordered pool
// and the limits, not where they came from.
type candidateStub struct {
	accepted bool
	pool     []eligibilitydomain.StudentProfile
	min, max int
}

func (c *candidateStub) HasAccepted(ctx context.Context, jobID snowflake.ID) (bool, error) {
	return c.accepted, nil
}

func (c *candidateStub) CandidatePool(ctx context.Context, jobID snowflake.ID) ([]eligibilitydomain.StudentProfile, int, int, error) {
	if !c.accepted {
		return nil, 0, 0, interviewdomain.ErrNoAcceptedInvitation
	}
	return c.pool, c.min, c.max, nil
}

func setupSlotDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	_ = db.Exec("PRAGMA journal_mode = WAL").Error

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS interview_slots (
		id BIGINT PRIMARY KEY,
		job_id BIGINT NOT NULL,
		start_at TIMESTAMP NOT NULL,
		duration_minutes INTEGER NOT NULL,
		type TEXT NOT NULL,
		location_type TEXT NOT NULL,
		location_details TEXT,
		meeting_link TEXT,
		max_candidates INTEGER NOT NULL,
		assigned_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS slot_assignments (
		id BIGINT PRIMARY KEY,
		slot_id BIGINT NOT NULL,
		job_id BIGINT NOT NULL,
		student_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		joined_at TIMESTAMP,
		feedback_rating INTEGER,
		feedback_comments TEXT,
		feedback_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error)

	return db
}

type slotFixture struct {
	svc        interviewdomain.Service
	db         *gorm.DB
	clk        *clock.FakeClock
	node       *snowflake.Node
	candidates *candidateStub
	jobID      snowflake.ID
}

func newSlotFixture(t *testing.T) *slotFixture {
	db := setupSlotDB(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC))
	candidates := &candidateStub{accepted: true}

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Policy:     config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Repo:       repository.Provide(),
		Candidates: candidates,
	})

	return &slotFixture{
		svc:        svc,
		db:         db,
		clk:        clk,
		node:       node,
		candidates: candidates,
		jobID:      node.Generate(),
	}
}

func (f *slotFixture) slotRequest(maxCandidates int) interviewdomain.CreateSlotRequest {
	return interviewdomain.CreateSlotRequest{
		JobID:           f.jobID.String(),
		StartAt:         f.clk.Now().Add(24 * time.Hour),
		DurationMinutes: 60,
		Type:            interviewdomain.SlotTypeTechnical,
		Location: interviewdomain.SlotLocation{
			Type:        interviewdomain.LocationOnline,
			Details:     "panel room 1",
			MeetingLink: "https://meet.example.com/abc",
		},
		MaxCandidates: maxCandidates,
	}
}

func (f *slotFixture) createSlot(t *testing.T, maxCandidates int) interviewdomain.InterviewSlot {
	slot, err := f.svc.CreateSlot(context.Background(), f.slotRequest(maxCandidates))
	require.NoError(t, err)
	return slot
}

func (f *slotFixture) seedPool(n int) {
	pool := make([]eligibilitydomain.StudentProfile, 0, n)
	for i := 0; i < n; i++ {
		cgpa := 9.0 - float64(i)*0.1
		pool = append(pool, eligibilitydomain.StudentProfile{
			ID:             f.node.Generate(),
			CollegeID:      1,
			FullName:       "candidate",
			Course:         "CSE",
			CGPA:           &cgpa,
			GraduationYear: 2026,
		})
	}
	f.candidates.pool = pool
}

func TestCreateSlotValidation(t *testing.T) {
	f := newSlotFixture(t)

	tests := []struct {
		name    string
		mutate  func(*interviewdomain.CreateSlotRequest)
		wantErr error
	}{
		{
			name:    "start in the past",
			mutate:  func(r *interviewdomain.CreateSlotRequest) { r.StartAt = f.clk.Now().Add(-time.Hour) },
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
		{
			name:    "zero duration",
			mutate:  func(r *interviewdomain.CreateSlotRequest) { r.DurationMinutes = 0 },
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
		{
			name:    "zero capacity",
			mutate:  func(r *interviewdomain.CreateSlotRequest) { r.MaxCandidates = 0 },
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
		{
			name:    "unknown type",
			mutate:  func(r *interviewdomain.CreateSlotRequest) { r.Type = "vibes" },
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
		{
			name: "online without link",
			mutate: func(r *interviewdomain.CreateSlotRequest) {
				r.Location.MeetingLink = ""
			},
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
		{
			name: "offline without details",
			mutate: func(r *interviewdomain.CreateSlotRequest) {
				r.Location.Type = interviewdomain.LocationOffline
				r.Location.Details = ""
			},
			wantErr: interviewdomain.ErrInvalidSlotSpec,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := f.slotRequest(5)
			tc.mutate(&req)
			_, err := f.svc.CreateSlot(context.Background(), req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateSlotRequiresAcceptedInvitation(t *testing.T) {
	f := newSlotFixture(t)
	f.candidates.accepted = false

	_, err := f.svc.CreateSlot(context.Background(), f.slotRequest(5))
	assert.ErrorIs(t, err, interviewdomain.ErrNoAcceptedInvitation)
}

func TestSlotStatusTransitions(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 5)

	// scheduled cannot jump straight to completed
	_, err := f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "completed",
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidStateTransition)

	inProgress, err := f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "in_progress",
	})
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.SlotStatusInProgress, inProgress.Status)

	completed, err := f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.SlotStatusCompleted, completed.Status)

	// terminal states stay put
	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "cancelled",
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidStateTransition)

	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "scheduled",
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidStateTransition)
}

func TestConfirmJoinFeedbackHappyPath(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 3)
	f.seedPool(1)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Assigned, 1)
	assignment := resp.Assigned[0]
	assert.Equal(t, interviewdomain.AssignmentStatusPendingConfirmation, assignment.Status)

	confirmed, err := f.svc.Confirm(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.AssignmentStatusConfirmed, confirmed.Status)

	// confirm is idempotent
	again, err := f.svc.Confirm(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.AssignmentStatusConfirmed, again.Status)

	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "in_progress",
	})
	require.NoError(t, err)

	f.clk.Set(slot.StartAt.Add(5 * time.Minute))
	joined, err := f.svc.Join(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.AssignmentStatusJoined, joined.Status)
	require.NotNil(t, joined.JoinedAt)

	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "completed",
	})
	require.NoError(t, err)

	withFeedback, err := f.svc.SubmitFeedback(context.Background(), interviewdomain.SubmitFeedbackRequest{
		AssignmentID: assignment.ID.String(),
		Rating:       4,
		Comments:     "strong fundamentals, weak on system design",
	})
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.AssignmentStatusCompleted, withFeedback.Status)
	require.NotNil(t, withFeedback.FeedbackRating)
	assert.Equal(t, 4, *withFeedback.FeedbackRating)

	_, err = f.svc.SubmitFeedback(context.Background(), interviewdomain.SubmitFeedbackRequest{
		AssignmentID: assignment.ID.String(),
		Rating:       2,
	})
	assert.ErrorIs(t, err, interviewdomain.ErrFeedbackAlreadySubmitted)
}

func TestJoinWindow(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 3)
	f.seedPool(1)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	assignment := resp.Assigned[0]

	// join before confirming
	_, err = f.svc.Join(context.Background(), assignment.ID.String())
	assert.ErrorIs(t, err, interviewdomain.ErrNotConfirmed)

	_, err = f.svc.Confirm(context.Background(), assignment.ID.String())
	require.NoError(t, err)

	// slot not started yet
	_, err = f.svc.Join(context.Background(), assignment.ID.String())
	assert.ErrorIs(t, err, interviewdomain.ErrSlotNotInProgress)

	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "in_progress",
	})
	require.NoError(t, err)

	// too early: more than 15 minutes before start
	f.clk.Set(slot.StartAt.Add(-16 * time.Minute))
	_, err = f.svc.Join(context.Background(), assignment.ID.String())
	assert.ErrorIs(t, err, interviewdomain.ErrJoinWindowClosed)

	// within the early window
	f.clk.Set(slot.StartAt.Add(-15 * time.Minute))
	joined, err := f.svc.Join(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.AssignmentStatusJoined, joined.Status)

	// join is idempotent
	f.clk.Set(slot.StartAt.Add(61 * time.Minute))
	again, err := f.svc.Join(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, joined.JoinedAt.UTC(), again.JoinedAt.UTC())
}

func TestJoinAfterSlotEndsFails(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 3)
	f.seedPool(1)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	assignment := resp.Assigned[0]

	_, err = f.svc.Confirm(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "in_progress",
	})
	require.NoError(t, err)

	f.clk.Set(slot.StartAt.Add(61 * time.Minute))
	_, err = f.svc.Join(context.Background(), assignment.ID.String())
	assert.ErrorIs(t, err, interviewdomain.ErrJoinWindowClosed)
}

func TestCancelCascadesToAssignments(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 3)
	f.seedPool(2)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Assigned, 2)

	_, err = f.svc.Confirm(context.Background(), resp.Assigned[0].ID.String())
	require.NoError(t, err)

	cancelled, err := f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, interviewdomain.SlotStatusCancelled, cancelled.Status)

	for _, assignment := range resp.Assigned {
		_, err := f.svc.Confirm(context.Background(), assignment.ID.String())
		assert.ErrorIs(t, err, interviewdomain.ErrSlotCancelled)

		_, err = f.svc.Join(context.Background(), assignment.ID.String())
		assert.ErrorIs(t, err, interviewdomain.ErrSlotCancelled)
	}

	// The cancelled assignments handed their seats back.
	var assignedCount int
	require.NoError(t, f.db.Raw(
		`SELECT assigned_count FROM interview_slots WHERE id = ?`, slot.ID,
	).Scan(&assignedCount).Error)
	assert.Zero(t, assignedCount)
}

func TestFeedbackValidation(t *testing.T) {
	f := newSlotFixture(t)
	f.createSlot(t, 3)
	f.seedPool(1)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	assignment := resp.Assigned[0]

	_, err = f.svc.SubmitFeedback(context.Background(), interviewdomain.SubmitFeedbackRequest{
		AssignmentID: assignment.ID.String(),
		Rating:       0,
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidFeedback)

	_, err = f.svc.SubmitFeedback(context.Background(), interviewdomain.SubmitFeedbackRequest{
		AssignmentID: assignment.ID.String(),
		Rating:       6,
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidFeedback)

	// slot still scheduled: feedback not open yet
	_, err = f.svc.SubmitFeedback(context.Background(), interviewdomain.SubmitFeedbackRequest{
		AssignmentID: assignment.ID.String(),
		Rating:       3,
	})
	assert.ErrorIs(t, err, interviewdomain.ErrInvalidStateTransition)
}
