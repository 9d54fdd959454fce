package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
)

func (s *Server) CreateSlot(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(jobID); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_job", "invalid job id"))
		return
	}

	var req interviewdomain.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.JobID = jobID

	slot, err := s.interviewSvc.CreateSlot(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slot})
}

func (s *Server) ListSlots(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(jobID); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_job", "invalid job id"))
		return
	}

	slots, err := s.interviewSvc.ListSlots(c.Request.Context(), jobID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slots})
}

func (s *Server) GetSlotByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	slot, err := s.interviewSvc.GetSlot(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slot})
}

func (s *Server) UpdateSlotStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req interviewdomain.UpdateSlotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.SlotID = id

	slot, err := s.interviewSvc.UpdateSlotStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slot})
}
