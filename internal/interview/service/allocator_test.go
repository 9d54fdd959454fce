package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
)

func countAssignments(t *testing.T, f *slotFixture, slotID snowflake.ID) int {
	var count int
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(1) FROM slot_assignments WHERE slot_id = ? AND status <> 'CANCELLED'`,
		slotID,
	).Scan(&count).Error)
	return count
}

func TestAutoAssignInsufficientCandidates(t *testing.T) {
	f := newSlotFixture(t)
	f.createSlot(t, 10)
	f.seedPool(3)
	f.candidates.min = 5
	f.candidates.max = 10

	_, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	assert.ErrorIs(t, err, interviewdomain.ErrInsufficientCandidates)

	var count int
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM slot_assignments`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestAutoAssignWithoutOpenSlots(t *testing.T) {
	f := newSlotFixture(t)
	f.seedPool(2)

	_, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	assert.ErrorIs(t, err, interviewdomain.ErrCapacityExhausted)

	// A job whose only slot was cancelled is just as stuck.
	slot := f.createSlot(t, 5)
	_, err = f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: slot.ID.String(), Status: "cancelled",
	})
	require.NoError(t, err)

	_, err = f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	assert.ErrorIs(t, err, interviewdomain.ErrCapacityExhausted)
}

func TestAutoAssignCapacityOverflow(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 2)
	f.seedPool(3)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)

	assert.Len(t, resp.Assigned, 2)
	assert.Len(t, resp.Unassigned, 1)
	assert.Equal(t, 2, countAssignments(t, f, slot.ID))

	// The leftover student is the lowest-CGPA one: allocation follows
	// the deterministic filter order.
	assert.Equal(t, f.candidates.pool[2].ID, resp.Unassigned[0])
}

func TestAutoAssignFillsEarliestSlotFirst(t *testing.T) {
	f := newSlotFixture(t)

	late := f.slotRequest(2)
	late.StartAt = f.clk.Now().Add(48 * time.Hour)
	lateSlot, err := f.svc.CreateSlot(context.Background(), late)
	require.NoError(t, err)

	earlySlot := f.createSlot(t, 2) // +24h

	f.seedPool(3)
	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Assigned, 3)

	assert.Equal(t, 2, countAssignments(t, f, earlySlot.ID))
	assert.Equal(t, 1, countAssignments(t, f, lateSlot.ID))

	// Top two candidates landed in the earlier slot.
	assert.Equal(t, earlySlot.ID, resp.Assigned[0].SlotID)
	assert.Equal(t, earlySlot.ID, resp.Assigned[1].SlotID)
	assert.Equal(t, lateSlot.ID, resp.Assigned[2].SlotID)
}

func TestAutoAssignStopsAtStudentLimit(t *testing.T) {
	f := newSlotFixture(t)
	f.createSlot(t, 10)
	f.seedPool(6)
	f.candidates.min = 2
	f.candidates.max = 4

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)

	assert.Len(t, resp.Assigned, 4)
	assert.Len(t, resp.Unassigned, 2)
}

func TestAutoAssignReinvokeSkipsPlacedStudents(t *testing.T) {
	f := newSlotFixture(t)
	f.createSlot(t, 2)
	f.seedPool(4)

	first, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, first.Assigned, 2)
	require.Len(t, first.Unassigned, 2)

	// Recruiter adds capacity and re-invokes.
	f.createSlot(t, 2)
	second, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, second.Assigned, 2)
	assert.Empty(t, second.Unassigned)

	seen := map[snowflake.ID]struct{}{}
	for _, a := range append(first.Assigned, second.Assigned...) {
		_, dup := seen[a.StudentID]
		assert.False(t, dup, "student assigned twice")
		seen[a.StudentID] = struct{}{}
	}
}

func TestAutoAssignSkipsCancelledSlots(t *testing.T) {
	f := newSlotFixture(t)
	cancelled := f.createSlot(t, 5)
	_, err := f.svc.UpdateSlotStatus(context.Background(), interviewdomain.UpdateSlotStatusRequest{
		SlotID: cancelled.ID.String(), Status: "cancelled",
	})
	require.NoError(t, err)

	open := f.createSlot(t, 5)
	f.seedPool(3)

	resp, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Assigned, 3)
	for _, a := range resp.Assigned {
		assert.Equal(t, open.ID, a.SlotID)
	}
}

func TestConcurrentAutoAssignNeverOversubscribes(t *testing.T) {
	f := newSlotFixture(t)
	slot := f.createSlot(t, 3)
	f.seedPool(8)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AutoAssign(context.Background(), interviewdomain.AutoAssignRequest{JobID: f.jobID.String()})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var slotRow struct {
		AssignedCount int
		MaxCandidates int
	}
	require.NoError(t, f.db.Raw(
		`SELECT assigned_count, max_candidates FROM interview_slots WHERE id = ?`,
		slot.ID,
	).Scan(&slotRow).Error)

	assert.LessOrEqual(t, slotRow.AssignedCount, slotRow.MaxCandidates)
	assert.LessOrEqual(t, countAssignments(t, f, slot.ID), slotRow.MaxCandidates)
}
