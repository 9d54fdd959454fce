package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
	"github.com/talentgrid/campushire/pkg/db/pagination"
)

func (s *Server) CreateInvitations(c *gin.Context) {
	var req invitationdomain.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invitations, err := s.invitationSvc.Create(c.Request.Context(), invitationdomain.CreateInvitationRequest{
		JobID:           strings.TrimSpace(req.JobID),
		CollegeIDs:      trimAll(req.CollegeIDs),
		Message:         strings.TrimSpace(req.Message),
		ProposedDates:   req.ProposedDates,
		ExpiresInDays:   req.ExpiresInDays,
		AllowedCourses:  req.AllowedCourses,
		MinCGPA:         req.MinCGPA,
		GraduationYears: req.GraduationYears,
		MaxBacklogs:     req.MaxBacklogs,
		MinStudents:     req.MinStudents,
		MaxStudents:     req.MaxStudents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invitations})
}

func (s *Server) ListInvitations(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		JobID  string `form:"job_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invitationSvc.List(c.Request.Context(), invitationdomain.ListInvitationRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
		JobID:      strings.TrimSpace(query.JobID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invitations, "page_info": resp.PageInfo})
}

func (s *Server) GetInvitationByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.invitationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) GetInvitationHistory(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	entries, err := s.invitationSvc.History(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) RespondToInvitation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req invitationdomain.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvitationID = id

	item, err := s.invitationSvc.Respond(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
