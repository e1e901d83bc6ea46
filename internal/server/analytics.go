package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
)

func detailsFromQuery(c *gin.Context) pddomain.PropertyDetails {
	bedrooms, _ := strconv.Atoi(c.Query("bedrooms"))
	return pddomain.PropertyDetails{
		PropertyType:     c.Query("property_type"),
		Bedrooms:         bedrooms,
		ConstructionDate: c.Query("construction_date"),
		FinishQuality:    c.Query("finish_quality"),
		OutdoorSpace:     c.Query("outdoor_space"),
	}
}

func (s *Server) GetValuation(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	valuation, err := s.analyticsSvc.GetValuation(c.Request.Context(), userID, c.Query("postcode"), detailsFromQuery(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": valuation})
}

func (s *Server) GetRents(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	rents, err := s.analyticsSvc.GetRents(c.Request.Context(), userID, c.Query("postcode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rents})
}

func (s *Server) GetSoldPrices(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	prices, err := s.analyticsSvc.GetSoldPrices(c.Request.Context(), userID, c.Query("postcode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

func (s *Server) GetGrowth(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	growth, err := s.analyticsSvc.GetGrowth(c.Request.Context(), userID, c.Query("postcode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": growth})
}

func (s *Server) GetDemographics(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	demographics, err := s.analyticsSvc.GetDemographics(c.Request.Context(), userID, c.Query("postcode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": demographics})
}

func (s *Server) GetPropertyAnalytics(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}
	analytics, err := s.analyticsSvc.GetPropertyAnalytics(c.Request.Context(), userID, c.Query("postcode"), detailsFromQuery(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": analytics})
}

type batchAnalyticsRequest struct {
	Properties []pddomain.BatchRequest `json:"properties"`
}

func (s *Server) BatchPropertyAnalytics(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		return
	}

	var req batchAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if len(req.Properties) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	results, err := s.analyticsSvc.BatchPropertyAnalytics(c.Request.Context(), userID, req.Properties)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) DeletePropertyCache(c *gin.Context) {
	postcode := strings.TrimSpace(c.Param("postcode"))
	if err := s.analyticsSvc.DeletePropertyCache(c.Request.Context(), postcode); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
