package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/talentgrid/campushire/internal/actorcontext"
)

const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-Id"
)

// ActorRequired resolves the calling actor from the gateway headers and
// stores it on the request context. The gateway authenticates callers;
// the core only trusts its forwarded identity.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		if !actorcontext.ValidRole(role) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var actorID snowflake.ID
		rawID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if role != actorcontext.RoleSystem {
			parsed, err := snowflake.ParseString(rawID)
			if err != nil || parsed == 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			actorID = parsed
		}

		ctx := actorcontext.WithActor(c.Request.Context(), role, actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authzSvc.Authorize(c.Request.Context(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RespondRateLimit throttles negotiation responses per actor when the
// redis-backed limiter is configured.
func (s *Server) RespondRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.respondLimiter.Enabled() {
			c.Next()
			return
		}

		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, err := s.respondLimiter.AllowActor(c.Request.Context(), fmt.Sprintf("%s:%s", actor.Role, actor.ID.String()))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
