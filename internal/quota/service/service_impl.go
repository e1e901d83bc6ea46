package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	"github.com/propsight/propsight/internal/cache"
	"github.com/propsight/propsight/internal/clock"
	obsmetrics "github.com/propsight/propsight/internal/observability/metrics"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
	"github.com/propsight/propsight/pkg/db"
)

const usageCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	AuditSvc    auditdomain.Service
	Metrics     *obsmetrics.Metrics          `optional:"true"`
	StatsSource quotadomain.UsageStatsSource `optional:"true"`
}

// Service enforces per-user credit accounting. Check-then-act sequences are
// serialized by a per-user mutex; the guarded UPDATE keeps the non-negative
// invariant even across processes.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	auditSvc    auditdomain.Service
	metrics     *obsmetrics.Metrics
	statsSource quotadomain.UsageStatsSource

	usageCache cache.Cache[string, quotadomain.QuotaUsage]

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(p Params) quotadomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("quota.service"),
		clock:       p.Clock,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
		statsSource: p.StatsSource,
		usageCache:  cache.NewTTLCache[string, quotadomain.QuotaUsage](),
		locks:       map[string]*sync.Mutex{},
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *Service) GetUserQuota(ctx context.Context, userID string) (*quotadomain.QuotaUsage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, quotadomain.ErrInvalidUser
	}

	if usage, ok := s.usageCache.Get(userID); ok {
		return &usage, nil
	}

	usage, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.usageCache.Set(userID, *usage, usageCacheTTL)
	return usage, nil
}

// loadOrCreate reads the persisted record, creating the default-plan row on
// first lookup. A concurrent first lookup is resolved via the unique key.
func (s *Service) loadOrCreate(ctx context.Context, userID string) (*quotadomain.QuotaUsage, error) {
	var usage quotadomain.QuotaUsage
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&usage).Error
	if err == nil {
		return &usage, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	plan, _ := quotadomain.PlanByID(quotadomain.DefaultPlanID)
	now := s.clock.Now()
	usage = quotadomain.QuotaUsage{
		UserID:           userID,
		PlanID:           plan.ID,
		UsedCredits:      0,
		RemainingCredits: plan.MonthlyCredits,
		ResetAt:          quotadomain.NextResetAt(now),
		Breakdown:        datatypes.NewJSONType(quotadomain.UsageBreakdown{}),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if createErr := s.db.WithContext(ctx).Create(&usage).Error; createErr != nil {
		if db.IsDuplicateKeyErr(createErr) {
			var existing quotadomain.QuotaUsage
			if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, createErr
	}

	s.log.Info("quota record created",
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
	)
	return &usage, nil
}

func (s *Service) CheckCredits(ctx context.Context, userID string, required int) (bool, error) {
	if required < 0 {
		return false, quotadomain.ErrInvalidCredits
	}
	usage, err := s.GetUserQuota(ctx, userID)
	if err != nil {
		return false, err
	}
	return usage.RemainingCredits >= required, nil
}

func (s *Service) DeductCredits(ctx context.Context, userID string, credits int, endpoint string, metadata map[string]any) (*quotadomain.QuotaUsage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, quotadomain.ErrInvalidUser
	}
	if credits <= 0 {
		return nil, quotadomain.ErrInvalidCredits
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	usage, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if usage.RemainingCredits < credits {
		s.metrics.IncQuotaRejected()
		s.log.Warn("deduction rejected",
			zap.String("user_id", userID),
			zap.String("endpoint", endpoint),
			zap.Int("required", credits),
			zap.Int("remaining", usage.RemainingCredits),
		)
		return nil, quotadomain.ErrInsufficientCredits
	}

	breakdown := usage.Breakdown.Data()
	breakdown.Add(endpoint, credits)
	now := s.clock.Now()

	res := s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Where("user_id = ? AND remaining_credits >= ?", userID, credits).
		Updates(map[string]any{
			"used_credits":      gorm.Expr("used_credits + ?", credits),
			"remaining_credits": gorm.Expr("remaining_credits - ?", credits),
			"breakdown":         datatypes.NewJSONType(breakdown),
			"updated_at":        now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another writer spent the credits between our read and the update.
		s.metrics.IncQuotaRejected()
		return nil, quotadomain.ErrInsufficientCredits
	}

	usage.UsedCredits += credits
	usage.RemainingCredits -= credits
	usage.Breakdown = datatypes.NewJSONType(breakdown)
	usage.UpdatedAt = now
	s.usageCache.Set(userID, *usage, usageCacheTTL)

	s.metrics.AddCreditsSpent(endpoint, credits)
	s.log.Debug("credits deducted",
		zap.String("user_id", userID),
		zap.String("endpoint", endpoint),
		zap.Int("credits", credits),
		zap.Int("remaining", usage.RemainingCredits),
		zap.Any("metadata", metadata),
	)
	return usage, nil
}

func (s *Service) AddCredits(ctx context.Context, userID string, credits int, reason, actorID string) (*quotadomain.QuotaUsage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, quotadomain.ErrInvalidUser
	}
	if credits <= 0 {
		return nil, quotadomain.ErrInvalidCredits
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	usage, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"remaining_credits": gorm.Expr("remaining_credits + ?", credits),
			"updated_at":        now,
		}).Error
	if err != nil {
		return nil, err
	}

	usage.RemainingCredits += credits
	usage.UpdatedAt = now
	s.usageCache.Set(userID, *usage, usageCacheTTL)

	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:    auditdomain.ActorTypeAdmin,
		ActorID:      actorID,
		Action:       auditdomain.ActionBonusCredits,
		TargetUserID: userID,
		Reason:       reason,
		Metadata:     map[string]any{"credits": credits},
	}); err != nil {
		s.log.Warn("audit bonus credits", zap.Error(err))
	}
	return usage, nil
}

// UpdateUserPlan switches the user's plan. Credits already used this period
// are preserved; remaining is recomputed from the new allotment, floored at
// zero. Bonus credits do not carry across a plan change.
func (s *Service) UpdateUserPlan(ctx context.Context, userID, planID, actorID string) (*quotadomain.QuotaUsage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, quotadomain.ErrInvalidUser
	}
	plan, ok := quotadomain.PlanByID(strings.TrimSpace(planID))
	if !ok {
		return nil, quotadomain.ErrUnknownPlan
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	usage, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	previousPlan := usage.PlanID
	remaining := plan.MonthlyCredits - usage.UsedCredits
	if remaining < 0 {
		remaining = 0
	}
	now := s.clock.Now()

	err = s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"plan_id":           plan.ID,
			"remaining_credits": remaining,
			"updated_at":        now,
		}).Error
	if err != nil {
		return nil, err
	}

	usage.PlanID = plan.ID
	usage.RemainingCredits = remaining
	usage.UpdatedAt = now
	s.usageCache.Set(userID, *usage, usageCacheTTL)

	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:    auditdomain.ActorTypeAdmin,
		ActorID:      actorID,
		Action:       auditdomain.ActionPlanChange,
		TargetUserID: userID,
		Metadata: map[string]any{
			"previous_plan": previousPlan,
			"new_plan":      plan.ID,
		},
	}); err != nil {
		s.log.Warn("audit plan change", zap.Error(err))
	}
	return usage, nil
}

// ResetMonthlyQuotas restores every due user to their plan allotment. Bonus
// credits from the prior period do not carry over.
func (s *Service) ResetMonthlyQuotas(ctx context.Context) (int, error) {
	now := s.clock.Now()

	var due []quotadomain.QuotaUsage
	if err := s.db.WithContext(ctx).Where("reset_at <= ?", now).Find(&due).Error; err != nil {
		return 0, err
	}

	resetCount := 0
	nextReset := quotadomain.NextResetAt(now)
	for i := range due {
		usage := due[i]
		plan, ok := quotadomain.PlanByID(usage.PlanID)
		if !ok {
			s.log.Warn("skipping reset for unknown plan",
				zap.String("user_id", usage.UserID),
				zap.String("plan_id", usage.PlanID),
			)
			continue
		}

		lock := s.userLock(usage.UserID)
		lock.Lock()
		err := s.db.WithContext(ctx).
			Model(&quotadomain.QuotaUsage{}).
			Where("user_id = ? AND reset_at <= ?", usage.UserID, now).
			Updates(map[string]any{
				"used_credits":      0,
				"remaining_credits": plan.MonthlyCredits,
				"breakdown":         datatypes.NewJSONType(quotadomain.UsageBreakdown{}),
				"reset_at":          nextReset,
				"updated_at":        now,
			}).Error
		s.usageCache.Delete(usage.UserID)
		lock.Unlock()

		if err != nil {
			s.log.Error("reset quota", zap.String("user_id", usage.UserID), zap.Error(err))
			continue
		}
		resetCount++
	}

	if resetCount > 0 {
		if err := s.auditSvc.Record(ctx, auditdomain.Entry{
			ActorType: auditdomain.ActorTypeSystem,
			ActorID:   "scheduler",
			Action:    auditdomain.ActionMonthlyReset,
			Metadata:  map[string]any{"users_reset": resetCount},
		}); err != nil {
			s.log.Warn("audit monthly reset", zap.Error(err))
		}
	}

	s.log.Info("monthly quota reset complete", zap.Int("users_reset", resetCount))
	return resetCount, nil
}

func (s *Service) GetQuotaStatistics(ctx context.Context) (quotadomain.Statistics, error) {
	stats := quotadomain.Statistics{
		UsersPerPlan: map[string]int64{},
		TopConsumers: []quotadomain.UserCredits{},
	}

	var totals struct {
		Users     int64
		Used      int64
		Remaining int64
	}
	err := s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Select("COUNT(*) AS users, COALESCE(SUM(used_credits), 0) AS used, COALESCE(SUM(remaining_credits), 0) AS remaining").
		Scan(&totals).Error
	if err != nil {
		return stats, err
	}
	stats.TotalUsers = totals.Users
	stats.TotalUsed = totals.Used
	stats.TotalRemaining = totals.Remaining

	var perPlan []struct {
		PlanID string
		Users  int64
	}
	err = s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Select("plan_id, COUNT(*) AS users").
		Group("plan_id").
		Scan(&perPlan).Error
	if err != nil {
		return stats, err
	}
	for _, row := range perPlan {
		stats.UsersPerPlan[row.PlanID] = row.Users
	}

	var top []quotadomain.QuotaUsage
	err = s.db.WithContext(ctx).
		Model(&quotadomain.QuotaUsage{}).
		Order("used_credits DESC").
		Limit(5).
		Find(&top).Error
	if err != nil {
		return stats, err
	}
	for _, usage := range top {
		if usage.UsedCredits == 0 {
			continue
		}
		stats.TopConsumers = append(stats.TopConsumers, quotadomain.UserCredits{
			UserID: usage.UserID,
			Used:   usage.UsedCredits,
		})
	}
	return stats, nil
}

func (s *Service) GetEfficiencyMetrics(ctx context.Context) (quotadomain.EfficiencyMetrics, error) {
	metrics := quotadomain.EfficiencyMetrics{}
	if s.statsSource == nil {
		return metrics, nil
	}

	since := s.clock.Now().AddDate(0, -1, 0)
	stats, err := s.statsSource.UsageStats(ctx, since)
	if err != nil {
		return metrics, err
	}

	metrics.ProviderCalls = stats.TotalCalls
	metrics.ProviderFailures = stats.Failures
	metrics.CreditsSpent = stats.CreditsSpent
	metrics.CacheHits = stats.CacheHits
	metrics.CreditsSavedByHit = stats.CreditsSaved
	if total := stats.CacheHits + stats.TotalCalls; total > 0 {
		metrics.CacheHitRatio = float64(stats.CacheHits) / float64(total)
	}
	return metrics, nil
}
