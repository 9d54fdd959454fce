package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
)

func (s *Server) RegisterStudent(c *gin.Context) {
	var req eligibilitydomain.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	student, err := s.eligibilitySvc.Register(c.Request.Context(), eligibilitydomain.RegisterStudentRequest{
		CollegeID:      strings.TrimSpace(req.CollegeID),
		FullName:       strings.TrimSpace(req.FullName),
		Course:         strings.TrimSpace(req.Course),
		CGPA:           req.CGPA,
		GraduationYear: req.GraduationYear,
		Backlogs:       req.Backlogs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": student})
}
