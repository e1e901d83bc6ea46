package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	"github.com/propsight/propsight/internal/config"
	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

type analyticsStub struct {
	valuationErr error
}

func (a *analyticsStub) GetValuation(ctx context.Context, userID, postcode string, details pddomain.PropertyDetails) (*pddomain.Valuation, error) {
	if a.valuationErr != nil {
		return nil, a.valuationErr
	}
	return &pddomain.Valuation{Estimate: 285000}, nil
}

func (a *analyticsStub) GetRents(context.Context, string, string) (*pddomain.RentalMarket, error) {
	return &pddomain.RentalMarket{MonthlyRent: 1950}, nil
}

func (a *analyticsStub) GetSoldPrices(context.Context, string, string) (*pddomain.SoldPrices, error) {
	return &pddomain.SoldPrices{}, nil
}

func (a *analyticsStub) GetGrowth(context.Context, string, string) (*pddomain.Growth, error) {
	return &pddomain.Growth{}, nil
}

func (a *analyticsStub) GetDemographics(context.Context, string, string) (*pddomain.Demographics, error) {
	return &pddomain.Demographics{}, nil
}

func (a *analyticsStub) GetPropertyAnalytics(ctx context.Context, userID, postcode string, details pddomain.PropertyDetails) (*pddomain.PropertyAnalytics, error) {
	return &pddomain.PropertyAnalytics{Postcode: pddomain.NormalizePostcode(postcode)}, nil
}

func (a *analyticsStub) BatchPropertyAnalytics(ctx context.Context, userID string, requests []pddomain.BatchRequest) ([]*pddomain.PropertyAnalytics, error) {
	out := make([]*pddomain.PropertyAnalytics, len(requests))
	for i, req := range requests {
		out[i] = &pddomain.PropertyAnalytics{Postcode: pddomain.NormalizePostcode(req.Postcode)}
	}
	return out, nil
}

func (a *analyticsStub) DeletePropertyCache(context.Context, string) error { return nil }

type quotaSvcStub struct{}

func (quotaSvcStub) GetUserQuota(ctx context.Context, userID string) (*quotadomain.QuotaUsage, error) {
	return &quotadomain.QuotaUsage{UserID: userID, PlanID: "starter", RemainingCredits: 18}, nil
}
func (quotaSvcStub) CheckCredits(ctx context.Context, userID string, required int) (bool, error) {
	return required <= 18, nil
}
func (quotaSvcStub) DeductCredits(context.Context, string, int, string, map[string]any) (*quotadomain.QuotaUsage, error) {
	return nil, nil
}
func (quotaSvcStub) AddCredits(context.Context, string, int, string, string) (*quotadomain.QuotaUsage, error) {
	return nil, nil
}
func (quotaSvcStub) UpdateUserPlan(context.Context, string, string, string) (*quotadomain.QuotaUsage, error) {
	return nil, nil
}
func (quotaSvcStub) ResetMonthlyQuotas(context.Context) (int, error) { return 0, nil }
func (quotaSvcStub) GetQuotaStatistics(context.Context) (quotadomain.Statistics, error) {
	return quotadomain.Statistics{}, nil
}
func (quotaSvcStub) GetEfficiencyMetrics(context.Context) (quotadomain.EfficiencyMetrics, error) {
	return quotadomain.EfficiencyMetrics{}, nil
}

type adminSvcStub struct{}

func (adminSvcStub) UpdateUserPlan(ctx context.Context, userID, planID, adminID string) (*quotadomain.QuotaUsage, error) {
	return &quotadomain.QuotaUsage{UserID: userID, PlanID: planID}, nil
}
func (adminSvcStub) GrantBonusCredits(ctx context.Context, userID string, credits int, reason, adminID string) (*quotadomain.QuotaUsage, error) {
	return &quotadomain.QuotaUsage{UserID: userID, RemainingCredits: credits}, nil
}
func (adminSvcStub) BulkUpdatePlans(ctx context.Context, updates []admindomain.PlanUpdate, adminID string) []admindomain.PlanUpdateResult {
	results := make([]admindomain.PlanUpdateResult, len(updates))
	for i, u := range updates {
		results[i] = admindomain.PlanUpdateResult{UserID: u.UserID, PlanID: u.PlanID, Updated: true}
	}
	return results
}
func (adminSvcStub) Dashboard(context.Context) (*admindomain.Dashboard, error) {
	return &admindomain.Dashboard{Plans: quotadomain.Plans()}, nil
}
func (adminSvcStub) TriggerMonthlyReset(context.Context, string) (int, error) { return 2, nil }

func newTestServer(t *testing.T, analytics pddomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		log:          zap.NewNop(),
		cfg:          config.Config{AppName: "propsight", AppVersion: "test"},
		engine:       engine,
		analyticsSvc: analytics,
		quotaSvc:     quotaSvcStub{},
		adminSvc:     adminSvcStub{},
		registry:     prometheus.NewRegistry(),
	}
	RegisterRoutes(s)
	return engine
}

func doRequest(engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	rec := doRequest(engine, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "propsight", body["service"])
}

func TestUserIdentityRequired(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	for _, path := range []string{
		"/v1/analytics/valuation?postcode=SW1A1AA",
		"/v1/analytics/property?postcode=SW1A1AA",
		"/v1/quota",
		"/v1/quota/check",
	} {
		rec := doRequest(engine, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestGetValuationHandler(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	rec := doRequest(engine, http.MethodGet, "/v1/analytics/valuation?postcode=SW1A+1AA&bedrooms=2", "",
		map[string]string{"X-User-ID": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data pddomain.Valuation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 285000, body.Data.Estimate)
}

func TestInsufficientCreditsMapsTo402(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{valuationErr: quotadomain.ErrInsufficientCredits})

	rec := doRequest(engine, http.MethodGet, "/v1/analytics/valuation?postcode=SW1A1AA", "",
		map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestBatchHandlerValidation(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})
	headers := map[string]string{"X-User-ID": "user-1"}

	rec := doRequest(engine, http.MethodPost, "/v1/analytics/batch", `{"properties":[]}`, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(engine, http.MethodPost, "/v1/analytics/batch",
		`{"properties":[{"postcode":"SW1A 1AA"},{"postcode":"M1 1AE"}]}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []pddomain.PropertyAnalytics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "SW1A1AA", body.Data[0].Postcode)
}

func TestQuotaEndpoints(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})
	headers := map[string]string{"X-User-ID": "user-1"}

	rec := doRequest(engine, http.MethodGet, "/v1/quota", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var quotaBody struct {
		Data quotadomain.QuotaUsage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotaBody))
	assert.Equal(t, "user-1", quotaBody.Data.UserID)
	assert.Equal(t, 18, quotaBody.Data.RemainingCredits)

	rec = doRequest(engine, http.MethodGet, "/v1/quota/check?required=5", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var checkBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkBody))
	assert.Equal(t, true, checkBody["sufficient"])

	rec = doRequest(engine, http.MethodGet, "/v1/quota/check?required=-1", "", headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(engine, http.MethodGet, "/v1/quota/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plansBody struct {
		Data []quotadomain.Plan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plansBody))
	assert.Len(t, plansBody.Data, 3)
}

func TestAdminEndpointsRequireActor(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	rec := doRequest(engine, http.MethodPost, "/v1/admin/users/user-1/plan", `{"plan_id":"portfolio"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(engine, http.MethodPost, "/v1/admin/users/user-1/plan", `{"plan_id":"portfolio"}`,
		map[string]string{"X-Admin-ID": "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data quotadomain.QuotaUsage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "portfolio", body.Data.PlanID)
}

func TestAdminTriggerResetHandler(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	rec := doRequest(engine, http.MethodPost, "/v1/admin/quotas/reset", "",
		map[string]string{"X-Admin-ID": "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["users_reset"])
}

func TestDeleteCacheHandler(t *testing.T) {
	engine := newTestServer(t, &analyticsStub{})

	rec := doRequest(engine, http.MethodDelete, "/v1/cache/SW1A1AA", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
