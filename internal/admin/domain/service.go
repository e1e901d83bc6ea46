// Package domain defines the operator-facing quota administration surface.
package domain

import (
	"context"
	"errors"

	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

// PlanUpdate is one entry of a bulk plan migration.
type PlanUpdate struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

// PlanUpdateResult reports the outcome for one bulk entry. Bulk updates are
// best-effort: a failure is reported here, never rolled back onto others.
type PlanUpdateResult struct {
	UserID  string `json:"user_id"`
	PlanID  string `json:"plan_id"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// Dashboard is the operator overview payload.
type Dashboard struct {
	Statistics     quotadomain.Statistics        `json:"statistics"`
	Efficiency     quotadomain.EfficiencyMetrics `json:"efficiency"`
	Plans          []quotadomain.Plan            `json:"plans"`
	RecentActivity []*auditdomain.AuditLog       `json:"recent_activity"`
}

type Service interface {
	UpdateUserPlan(ctx context.Context, userID, planID, adminID string) (*quotadomain.QuotaUsage, error)
	GrantBonusCredits(ctx context.Context, userID string, credits int, reason, adminID string) (*quotadomain.QuotaUsage, error)
	BulkUpdatePlans(ctx context.Context, updates []PlanUpdate, adminID string) []PlanUpdateResult
	Dashboard(ctx context.Context) (*Dashboard, error)
	TriggerMonthlyReset(ctx context.Context, adminID string) (int, error)
}

var ErrMissingAdmin = errors.New("missing_admin_actor")
