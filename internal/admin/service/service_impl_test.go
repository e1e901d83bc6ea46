package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

type quotaStub struct {
	mu          sync.Mutex
	planUpdates []string
	addCalls    []string
	resetCount  int
	failPlans   map[string]error
}

func (q *quotaStub) UpdateUserPlan(ctx context.Context, userID, planID, actorID string) (*quotadomain.QuotaUsage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.failPlans[userID]; err != nil {
		return nil, err
	}
	q.planUpdates = append(q.planUpdates, userID+":"+planID)
	return &quotadomain.QuotaUsage{UserID: userID, PlanID: planID}, nil
}

func (q *quotaStub) AddCredits(ctx context.Context, userID string, credits int, reason, actorID string) (*quotadomain.QuotaUsage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.addCalls = append(q.addCalls, reason)
	return &quotadomain.QuotaUsage{UserID: userID, RemainingCredits: credits}, nil
}

func (q *quotaStub) ResetMonthlyQuotas(ctx context.Context) (int, error) {
	return q.resetCount, nil
}

func (q *quotaStub) GetUserQuota(context.Context, string) (*quotadomain.QuotaUsage, error) {
	return nil, nil
}
func (q *quotaStub) CheckCredits(context.Context, string, int) (bool, error) { return true, nil }
func (q *quotaStub) DeductCredits(context.Context, string, int, string, map[string]any) (*quotadomain.QuotaUsage, error) {
	return nil, nil
}
func (q *quotaStub) GetQuotaStatistics(context.Context) (quotadomain.Statistics, error) {
	return quotadomain.Statistics{TotalUsers: 7}, nil
}
func (q *quotaStub) GetEfficiencyMetrics(context.Context) (quotadomain.EfficiencyMetrics, error) {
	return quotadomain.EfficiencyMetrics{CacheHits: 11}, nil
}

type auditStub struct {
	recent []*auditdomain.AuditLog
}

func (a *auditStub) Record(context.Context, auditdomain.Entry) error { return nil }
func (a *auditStub) Recent(ctx context.Context, limit int) ([]*auditdomain.AuditLog, error) {
	if limit < len(a.recent) {
		return a.recent[:limit], nil
	}
	return a.recent, nil
}

func setupAdmin(quota *quotaStub, audit *auditStub) admindomain.Service {
	return NewService(Params{Log: zap.NewNop(), QuotaSvc: quota, AuditSvc: audit})
}

func TestAdminRequiresActor(t *testing.T) {
	svc := setupAdmin(&quotaStub{}, &auditStub{})
	ctx := context.Background()

	if _, err := svc.UpdateUserPlan(ctx, "user-1", "portfolio", "  "); !errors.Is(err, admindomain.ErrMissingAdmin) {
		t.Errorf("update plan err = %v, want ErrMissingAdmin", err)
	}
	if _, err := svc.GrantBonusCredits(ctx, "user-1", 5, "reason", ""); !errors.Is(err, admindomain.ErrMissingAdmin) {
		t.Errorf("grant err = %v, want ErrMissingAdmin", err)
	}
	if _, err := svc.TriggerMonthlyReset(ctx, ""); !errors.Is(err, admindomain.ErrMissingAdmin) {
		t.Errorf("reset err = %v, want ErrMissingAdmin", err)
	}
}

func TestGrantBonusCreditsDefaultsReason(t *testing.T) {
	quota := &quotaStub{}
	svc := setupAdmin(quota, &auditStub{})

	if _, err := svc.GrantBonusCredits(context.Background(), "user-1", 5, "   ", "admin-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if len(quota.addCalls) != 1 || quota.addCalls[0] != "goodwill" {
		t.Errorf("reasons = %v, want [goodwill]", quota.addCalls)
	}
}

func TestBulkUpdatePlansBestEffort(t *testing.T) {
	quota := &quotaStub{failPlans: map[string]error{
		"user-2": quotadomain.ErrUnknownPlan,
	}}
	svc := setupAdmin(quota, &auditStub{})

	results := svc.BulkUpdatePlans(context.Background(), []admindomain.PlanUpdate{
		{UserID: "user-1", PlanID: "portfolio"},
		{UserID: "user-2", PlanID: "nope"},
		{UserID: "user-3", PlanID: "professional"},
	}, "admin-1")

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].Updated || !results[2].Updated {
		t.Error("surrounding entries should succeed despite a failure in the middle")
	}
	if results[1].Updated || results[1].Error == "" {
		t.Errorf("failed entry = %+v, want Updated=false with an error", results[1])
	}
	if len(quota.planUpdates) != 2 {
		t.Errorf("plan updates applied = %d, want 2", len(quota.planUpdates))
	}
}

func TestDashboardComposes(t *testing.T) {
	audit := &auditStub{recent: []*auditdomain.AuditLog{
		{Action: auditdomain.ActionPlanChange, CreatedAt: time.Now()},
	}}
	svc := setupAdmin(&quotaStub{}, audit)

	dashboard, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Statistics.TotalUsers != 7 {
		t.Errorf("statistics not propagated: %+v", dashboard.Statistics)
	}
	if dashboard.Efficiency.CacheHits != 11 {
		t.Errorf("efficiency not propagated: %+v", dashboard.Efficiency)
	}
	if len(dashboard.Plans) != len(quotadomain.Plans()) {
		t.Errorf("plans = %d, want full catalog", len(dashboard.Plans))
	}
	if len(dashboard.RecentActivity) != 1 {
		t.Errorf("recent activity = %d, want 1", len(dashboard.RecentActivity))
	}
}

func TestTriggerMonthlyReset(t *testing.T) {
	quota := &quotaStub{resetCount: 4}
	svc := setupAdmin(quota, &auditStub{})

	count, err := svc.TriggerMonthlyReset(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}
