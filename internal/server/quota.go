package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

func (s *Server) GetUserQuota(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	usage, err := s.quotaSvc.GetUserQuota(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": usage})
}

func (s *Server) CheckCredits(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	required, err := strconv.Atoi(c.DefaultQuery("required", "1"))
	if err != nil || required < 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sufficient, err := s.quotaSvc.CheckCredits(c.Request.Context(), userID, required)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sufficient": sufficient,
		"required":   required,
	})
}

func (s *Server) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": quotadomain.Plans()})
}
