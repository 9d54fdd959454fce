package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
)

func (s *Server) AutoAssign(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(jobID); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_job", "invalid job id"))
		return
	}

	resp, err := s.interviewSvc.AutoAssign(c.Request.Context(), interviewdomain.AutoAssignRequest{JobID: jobID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSlotAssignments(c *gin.Context) {
	slotID := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(slotID); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	assignments, err := s.interviewSvc.ListAssignments(c.Request.Context(), slotID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignments})
}

func (s *Server) ConfirmAssignment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	assignment, err := s.interviewSvc.Confirm(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignment})
}

func (s *Server) JoinAssignment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	assignment, err := s.interviewSvc.Join(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignment})
}

func (s *Server) SubmitFeedback(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req interviewdomain.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AssignmentID = id

	assignment, err := s.interviewSvc.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignment})
}
