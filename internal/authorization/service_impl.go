package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talentgrid/campushire/internal/actorcontext"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvitation     = "invitation"
	ObjectSlot           = "slot"
	ObjectAssignment     = "assignment"
	ObjectStudentProfile = "student_profile"
)

const (
	ActionInvitationCreate  = "invitation.create"
	ActionInvitationView    = "invitation.view"
	ActionInvitationRespond = "invitation.respond"
	ActionInvitationExpire  = "invitation.expire"

	ActionSlotCreate       = "slot.create"
	ActionSlotView         = "slot.view"
	ActionSlotUpdateStatus = "slot.update_status"

	ActionAssignmentAuto     = "assignment.auto_assign"
	ActionAssignmentView     = "assignment.view"
	ActionAssignmentConfirm  = "assignment.confirm"
	ActionAssignmentJoin     = "assignment.join"
	ActionAssignmentFeedback = "assignment.feedback"

	ActionStudentProfileCreate = "student_profile.create"
)

// All policies live in a single domain. The enforcer shape keeps the
// domain column so tenant scoping can be added without a policy
// migration.
const defaultDomain = "portal"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actor, ok := actorcontext.FromContext(ctx)
	if !ok || !actorcontext.ValidRole(actor.Role) {
		return ErrInvalidActor
	}
	if actor.Role != actorcontext.RoleSystem && actor.ID == 0 {
		return ErrInvalidActor
	}

	subject := actorSubject(actor)
	roleName := fmt.Sprintf("role:%s", actor.Role)
	if err := s.ensureGrouping(subject, roleName, defaultDomain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, defaultDomain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func actorSubject(actor actorcontext.Actor) string {
	if actor.Role == actorcontext.RoleSystem {
		return "system"
	}
	return fmt.Sprintf("%s:%s", actor.Role, actor.ID.String())
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Recruiter permissions. Respond is granted to both negotiating
		// parties: after a college counter the recruiter accepts, declines
		// or counters back.
		{"role:recruiter", ObjectInvitation, ActionInvitationCreate},
		{"role:recruiter", ObjectInvitation, ActionInvitationView},
		{"role:recruiter", ObjectInvitation, ActionInvitationRespond},
		{"role:recruiter", ObjectSlot, ActionSlotCreate},
		{"role:recruiter", ObjectSlot, ActionSlotView},
		{"role:recruiter", ObjectSlot, ActionSlotUpdateStatus},
		{"role:recruiter", ObjectAssignment, ActionAssignmentAuto},
		{"role:recruiter", ObjectAssignment, ActionAssignmentView},
		{"role:recruiter", ObjectAssignment, ActionAssignmentFeedback},

		// College (placement office) permissions
		{"role:college", ObjectInvitation, ActionInvitationView},
		{"role:college", ObjectInvitation, ActionInvitationRespond},
		{"role:college", ObjectSlot, ActionSlotView},
		{"role:college", ObjectAssignment, ActionAssignmentView},
		{"role:college", ObjectAssignment, ActionAssignmentConfirm},
		{"role:college", ObjectStudentProfile, ActionStudentProfileCreate},

		// Student permissions
		{"role:student", ObjectSlot, ActionSlotView},
		{"role:student", ObjectAssignment, ActionAssignmentView},
		{"role:student", ObjectAssignment, ActionAssignmentConfirm},
		{"role:student", ObjectAssignment, ActionAssignmentJoin},

		// System permissions (sweeper and automation)
		{"role:system", ObjectInvitation, ActionInvitationView},
		{"role:system", ObjectInvitation, ActionInvitationExpire},
		{"role:system", ObjectSlot, ActionSlotView},
		{"role:system", ObjectSlot, ActionSlotUpdateStatus},
		{"role:system", ObjectAssignment, ActionAssignmentView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
