package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

func TestErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"insufficient credits", quotadomain.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
		{"invalid postcode", pddomain.ErrInvalidPostcode, http.StatusBadRequest, "invalid_request"},
		{"unknown plan", quotadomain.ErrUnknownPlan, http.StatusBadRequest, "invalid_request"},
		{"missing admin", admindomain.ErrMissingAdmin, http.StatusBadRequest, "invalid_request"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"rate limited", pddomain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"missing api key", pddomain.ErrMissingAPIKey, http.StatusServiceUnavailable, "provider_unconfigured"},
		{"provider failure", pddomain.ErrProviderFailure, http.StatusBadGateway, "provider_failure"},
		{"unknown error", ErrInternal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(ErrorHandlingMiddleware())
			engine.GET("/boom", func(c *gin.Context) {
				AbortWithError(c, tc.err)
			})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/boom", nil)
			engine.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Type != tc.wantType {
				t.Errorf("error type = %q, want %q", body.Error.Type, tc.wantType)
			}
		})
	}
}

func TestHandlerResponseNotOverwritten(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
