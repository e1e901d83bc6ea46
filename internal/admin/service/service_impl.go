package service

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	QuotaSvc quotadomain.Service
	AuditSvc auditdomain.Service
}

type Service struct {
	log      *zap.Logger
	quotaSvc quotadomain.Service
	auditSvc auditdomain.Service
}

func NewService(p Params) admindomain.Service {
	return &Service{
		log:      p.Log.Named("admin.service"),
		quotaSvc: p.QuotaSvc,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) UpdateUserPlan(ctx context.Context, userID, planID, adminID string) (*quotadomain.QuotaUsage, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, admindomain.ErrMissingAdmin
	}
	return s.quotaSvc.UpdateUserPlan(ctx, userID, planID, adminID)
}

func (s *Service) GrantBonusCredits(ctx context.Context, userID string, credits int, reason, adminID string) (*quotadomain.QuotaUsage, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, admindomain.ErrMissingAdmin
	}
	if strings.TrimSpace(reason) == "" {
		reason = "goodwill"
	}
	return s.quotaSvc.AddCredits(ctx, userID, credits, reason, adminID)
}

// BulkUpdatePlans applies updates sequentially and independently; an entry
// that fails does not stop or undo the rest.
func (s *Service) BulkUpdatePlans(ctx context.Context, updates []admindomain.PlanUpdate, adminID string) []admindomain.PlanUpdateResult {
	results := make([]admindomain.PlanUpdateResult, 0, len(updates))
	for _, update := range updates {
		result := admindomain.PlanUpdateResult{
			UserID: update.UserID,
			PlanID: update.PlanID,
		}
		if _, err := s.UpdateUserPlan(ctx, update.UserID, update.PlanID, adminID); err != nil {
			result.Error = err.Error()
			s.log.Warn("bulk plan update entry failed",
				zap.String("user_id", update.UserID),
				zap.String("plan_id", update.PlanID),
				zap.Error(err),
			)
		} else {
			result.Updated = true
		}
		results = append(results, result)
	}
	return results
}

func (s *Service) Dashboard(ctx context.Context) (*admindomain.Dashboard, error) {
	stats, err := s.quotaSvc.GetQuotaStatistics(ctx)
	if err != nil {
		return nil, err
	}
	efficiency, err := s.quotaSvc.GetEfficiencyMetrics(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.auditSvc.Recent(ctx, 20)
	if err != nil {
		return nil, err
	}

	return &admindomain.Dashboard{
		Statistics:     stats,
		Efficiency:     efficiency,
		Plans:          quotadomain.Plans(),
		RecentActivity: recent,
	}, nil
}

func (s *Service) TriggerMonthlyReset(ctx context.Context, adminID string) (int, error) {
	if strings.TrimSpace(adminID) == "" {
		return 0, admindomain.ErrMissingAdmin
	}
	s.log.Info("manual quota reset requested", zap.String("admin_id", adminID))
	return s.quotaSvc.ResetMonthlyQuotas(ctx)
}
