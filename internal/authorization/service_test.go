package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentgrid/campushire/internal/actorcontext"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func actorCtx(role string, id snowflake.ID) context.Context {
	return actorcontext.WithActor(context.Background(), role, id)
}

func TestAuthorizeRequiresActor(t *testing.T) {
	svc := newTestService(t)

	err := svc.Authorize(context.Background(), ObjectInvitation, ActionInvitationView)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = svc.Authorize(actorCtx(actorcontext.RoleCollege, 0), ObjectInvitation, ActionInvitationView)
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestBothNegotiatingPartiesMayRespond(t *testing.T) {
	svc := newTestService(t)

	assert.NoError(t, svc.Authorize(actorCtx(actorcontext.RoleCollege, 101), ObjectInvitation, ActionInvitationRespond))
	assert.NoError(t, svc.Authorize(actorCtx(actorcontext.RoleRecruiter, 202), ObjectInvitation, ActionInvitationRespond))

	err := svc.Authorize(actorCtx(actorcontext.RoleStudent, 303), ObjectInvitation, ActionInvitationRespond)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRoleBoundaries(t *testing.T) {
	svc := newTestService(t)

	err := svc.Authorize(actorCtx(actorcontext.RoleRecruiter, 7), ObjectStudentProfile, ActionStudentProfileCreate)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Authorize(actorCtx(actorcontext.RoleCollege, 8), ObjectInvitation, ActionInvitationCreate)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.NoError(t, svc.Authorize(actorCtx(actorcontext.RoleSystem, 0), ObjectInvitation, ActionInvitationExpire))
}
