package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
)

func TestExpireDueSweepsOverdueInvitations(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.clk.Set(inv.ExpiresAt.Add(time.Second))
	expired, remaining, err := f.sweeper.ExpireDue(context.Background(), f.clk.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 0, remaining)

	got, err := f.svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invitationdomain.StatusExpired, got.Status)

	history, err := f.svc.History(context.Background(), inv.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, invitationdomain.ActionExpired, history[1].Action)
	assert.Equal(t, invitationdomain.ActorSystem, history[1].Actor)
}

func TestExpireDueBoundaryCountsAsExpired(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.clk.Set(inv.ExpiresAt)
	expired, _, err := f.sweeper.ExpireDue(context.Background(), f.clk.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
}

func TestExpireDueSkipsRespondedInvitations(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	_, err := f.svc.Accept(f.collegeCtx(inv), invitationdomain.AcceptInvitationRequest{
		InvitationID: inv.ID.String(),
		Window:       futureWindow(f.clk),
	})
	require.NoError(t, err)

	f.clk.Set(inv.ExpiresAt.Add(time.Hour))
	expired, remaining, err := f.sweeper.ExpireDue(context.Background(), f.clk.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, 0, remaining)

	got, err := f.svc.GetByID(context.Background(), inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invitationdomain.StatusAccepted, got.Status)
}

func TestExpireDueHonorsBatchLimit(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest()
	req.CollegeIDs = []string{
		f.node.Generate().String(),
		f.node.Generate().String(),
		f.node.Generate().String(),
	}
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	f.clk.Set(created[0].ExpiresAt.Add(time.Minute))

	expired, remaining, err := f.sweeper.ExpireDue(context.Background(), f.clk.Now(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, 1, remaining)

	expired, remaining, err = f.sweeper.ExpireDue(context.Background(), f.clk.Now(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 0, remaining)
}
