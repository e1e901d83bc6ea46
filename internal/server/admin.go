package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
)

type updatePlanRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) AdminUpdateUserPlan(c *gin.Context) {
	adminID, ok := s.adminID(c)
	if !ok {
		return
	}

	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usage, err := s.adminSvc.UpdateUserPlan(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.PlanID), adminID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usage})
}

type grantCreditsRequest struct {
	Credits int    `json:"credits"`
	Reason  string `json:"reason"`
}

func (s *Server) AdminGrantCredits(c *gin.Context) {
	adminID, ok := s.adminID(c)
	if !ok {
		return
	}

	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usage, err := s.adminSvc.GrantBonusCredits(c.Request.Context(), c.Param("id"), req.Credits, req.Reason, adminID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usage})
}

type bulkUpdateRequest struct {
	Updates []admindomain.PlanUpdate `json:"updates"`
}

func (s *Server) AdminBulkUpdatePlans(c *gin.Context) {
	adminID, ok := s.adminID(c)
	if !ok {
		return
	}

	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if len(req.Updates) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	results := s.adminSvc.BulkUpdatePlans(c.Request.Context(), req.Updates, adminID)
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) AdminDashboard(c *gin.Context) {
	if _, ok := s.adminID(c); !ok {
		return
	}
	dashboard, err := s.adminSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}

func (s *Server) AdminTriggerReset(c *gin.Context) {
	adminID, ok := s.adminID(c)
	if !ok {
		return
	}
	count, err := s.adminSvc.TriggerMonthlyReset(c.Request.Context(), adminID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users_reset": count})
}
