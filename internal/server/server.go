package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/talentgrid/campushire/internal/authorization"
	"github.com/talentgrid/campushire/internal/config"
	"github.com/talentgrid/campushire/internal/eligibility"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	"github.com/talentgrid/campushire/internal/interview"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	"github.com/talentgrid/campushire/internal/invitation"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"github.com/talentgrid/campushire/internal/observability"
	obslogger "github.com/talentgrid/campushire/internal/observability/logger"
	obsmetrics "github.com/talentgrid/campushire/internal/observability/metrics"
	obstracing "github.com/talentgrid/campushire/internal/observability/tracing"
	"github.com/talentgrid/campushire/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	eligibility.Module,
	invitation.Module,
	interview.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	authzSvc       authorization.Service
	invitationSvc  invitationdomain.Service
	eligibilitySvc eligibilitydomain.Service
	interviewSvc   interviewdomain.Service
	respondLimiter *ratelimit.RespondLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuthzSvc       authorization.Service
	InvitationSvc  invitationdomain.Service
	EligibilitySvc eligibilitydomain.Service
	InterviewSvc   interviewdomain.Service
	RespondLimiter *ratelimit.RespondLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		authzSvc:       p.AuthzSvc,
		invitationSvc:  p.InvitationSvc,
		eligibilitySvc: p.EligibilitySvc,
		interviewSvc:   p.InterviewSvc,
		respondLimiter: p.RespondLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.ActorRequired())

	// -------- Invitations --------
	v1.POST("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationCreate), s.CreateInvitations)
	v1.GET("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationView), s.ListInvitations)
	v1.GET("/invitations/:id", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationView), s.GetInvitationByID)
	v1.GET("/invitations/:id/history", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationView), s.GetInvitationHistory)
	v1.POST("/invitations/:id/respond", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationRespond), s.RespondRateLimit(), s.RespondToInvitation)

	// -------- Students --------
	v1.POST("/students", s.authorizeAction(authorization.ObjectStudentProfile, authorization.ActionStudentProfileCreate), s.RegisterStudent)

	// -------- Slots --------
	v1.POST("/jobs/:id/slots", s.authorizeAction(authorization.ObjectSlot, authorization.ActionSlotCreate), s.CreateSlot)
	v1.GET("/jobs/:id/slots", s.authorizeAction(authorization.ObjectSlot, authorization.ActionSlotView), s.ListSlots)
	v1.GET("/slots/:id", s.authorizeAction(authorization.ObjectSlot, authorization.ActionSlotView), s.GetSlotByID)
	v1.PATCH("/slots/:id/status", s.authorizeAction(authorization.ObjectSlot, authorization.ActionSlotUpdateStatus), s.UpdateSlotStatus)

	// -------- Assignments --------
	v1.POST("/jobs/:id/assignments/auto", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentAuto), s.AutoAssign)
	v1.GET("/slots/:id/assignments", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentView), s.ListSlotAssignments)
	v1.POST("/assignments/:id/confirm", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentConfirm), s.ConfirmAssignment)
	v1.POST("/assignments/:id/join", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentJoin), s.JoinAssignment)
	v1.POST("/assignments/:id/feedback", s.authorizeAction(authorization.ObjectAssignment, authorization.ActionAssignmentFeedback), s.SubmitFeedback)
}
