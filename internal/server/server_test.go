package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/talentgrid/campushire/internal/actorcontext"
	"github.com/talentgrid/campushire/internal/authorization"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
)

type fakeAuthzService struct {
	allow     bool
	lastObj   string
	lastAct   string
	callCount int
}

func (f *fakeAuthzService) Authorize(ctx context.Context, object string, action string) error {
	f.callCount++
	f.lastObj = object
	f.lastAct = action
	if _, ok := actorcontext.FromContext(ctx); !ok {
		return authorization.ErrInvalidActor
	}
	if !f.allow {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeInvitationService struct {
	respondErr   error
	respondCalls int
	getErr       error
}

func (f *fakeInvitationService) Create(ctx context.Context, req invitationdomain.CreateInvitationRequest) ([]invitationdomain.Invitation, error) {
	_ = ctx
	_ = req
	return []invitationdomain.Invitation{{}}, nil
}

func (f *fakeInvitationService) Respond(ctx context.Context, req invitationdomain.RespondInvitationRequest) (invitationdomain.Invitation, error) {
	f.respondCalls++
	_ = ctx
	_ = req
	if f.respondErr != nil {
		return invitationdomain.Invitation{}, f.respondErr
	}
	return invitationdomain.Invitation{}, nil
}

func (f *fakeInvitationService) Accept(ctx context.Context, req invitationdomain.AcceptInvitationRequest) (invitationdomain.Invitation, error) {
	_ = ctx
	_ = req
	return invitationdomain.Invitation{}, nil
}

func (f *fakeInvitationService) Decline(ctx context.Context, req invitationdomain.DeclineInvitationRequest) (invitationdomain.Invitation, error) {
	_ = ctx
	_ = req
	return invitationdomain.Invitation{}, nil
}

func (f *fakeInvitationService) Counter(ctx context.Context, req invitationdomain.CounterInvitationRequest) (invitationdomain.Invitation, error) {
	_ = ctx
	_ = req
	return invitationdomain.Invitation{}, nil
}

func (f *fakeInvitationService) List(ctx context.Context, req invitationdomain.ListInvitationRequest) (invitationdomain.ListInvitationResponse, error) {
	_ = ctx
	_ = req
	return invitationdomain.ListInvitationResponse{}, nil
}

func (f *fakeInvitationService) GetByID(ctx context.Context, id string) (invitationdomain.Invitation, error) {
	_ = ctx
	_ = id
	if f.getErr != nil {
		return invitationdomain.Invitation{}, f.getErr
	}
	return invitationdomain.Invitation{}, nil
}

func (f *fakeInvitationService) History(ctx context.Context, id string) ([]invitationdomain.NegotiationEntry, error) {
	_ = ctx
	_ = id
	return nil, nil
}

func newTestServer(invSvc invitationdomain.Service, authz authorization.Service) *Server {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:        router,
		authzSvc:      authz,
		invitationSvc: invSvc,
	}
	srv.registerAPIRoutes()
	return srv
}

func TestActorRequiredRejectsUnknownRole(t *testing.T) {
	srv := newTestServer(&fakeInvitationService{}, &fakeAuthzService{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/invitations/1234567890123/history", nil)
	req.Header.Set(HeaderActorRole, "auditor")
	req.Header.Set(HeaderActorID, "1234567890123")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestActorRequiredRejectsMissingID(t *testing.T) {
	srv := newTestServer(&fakeInvitationService{}, &fakeAuthzService{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/invitations/1234567890123", nil)
	req.Header.Set(HeaderActorRole, "college")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthorizationDeniedReturnsForbidden(t *testing.T) {
	authz := &fakeAuthzService{allow: false}
	invSvc := &fakeInvitationService{}
	srv := newTestServer(invSvc, authz)

	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/1234567890123/respond", bytes.NewBufferString(`{"action":"accept"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActorRole, "student")
	req.Header.Set(HeaderActorID, "1234567890123")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	if invSvc.respondCalls != 0 {
		t.Fatal("expected respond handler not to reach the service")
	}
	if authz.lastObj != authorization.ObjectInvitation || authz.lastAct != authorization.ActionInvitationRespond {
		t.Fatalf("unexpected authorization check: %s %s", authz.lastObj, authz.lastAct)
	}
}

func TestRespondMapsStateConflict(t *testing.T) {
	invSvc := &fakeInvitationService{respondErr: invitationdomain.ErrInvalidStateTransition}
	srv := newTestServer(invSvc, &fakeAuthzService{allow: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/1234567890123/respond", bytes.NewBufferString(`{"action":"accept"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActorRole, "college")
	req.Header.Set(HeaderActorID, "1234567890123")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if invSvc.respondCalls != 1 {
		t.Fatalf("expected one respond call, got %d", invSvc.respondCalls)
	}
}

func TestGetInvitationNotFound(t *testing.T) {
	invSvc := &fakeInvitationService{getErr: invitationdomain.ErrNotFound}
	srv := newTestServer(invSvc, &fakeAuthzService{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/invitations/1234567890123", nil)
	req.Header.Set(HeaderActorRole, "recruiter")
	req.Header.Set(HeaderActorID, "1234567890123")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestInvalidInvitationIDRejected(t *testing.T) {
	srv := newTestServer(&fakeInvitationService{}, &fakeAuthzService{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/invitations/not-a-number", nil)
	req.Header.Set(HeaderActorRole, "recruiter")
	req.Header.Set(HeaderActorID, "1234567890123")
	resp := httptest.NewRecorder()
	srv.Engine().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
