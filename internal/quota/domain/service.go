package domain

import (
	"context"
	"errors"
	"time"

	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
)

// Service is the authoritative credit accountant for provider usage.
type Service interface {
	GetUserQuota(ctx context.Context, userID string) (*QuotaUsage, error)
	CheckCredits(ctx context.Context, userID string, required int) (bool, error)
	DeductCredits(ctx context.Context, userID string, credits int, endpoint string, metadata map[string]any) (*QuotaUsage, error)
	AddCredits(ctx context.Context, userID string, credits int, reason, actorID string) (*QuotaUsage, error)
	UpdateUserPlan(ctx context.Context, userID, planID, actorID string) (*QuotaUsage, error)
	ResetMonthlyQuotas(ctx context.Context) (int, error)
	GetQuotaStatistics(ctx context.Context) (Statistics, error)
	GetEfficiencyMetrics(ctx context.Context) (EfficiencyMetrics, error)
}

// UsageStatsSource reports provider call outcomes; satisfied by the
// property data repository.
type UsageStatsSource interface {
	UsageStats(ctx context.Context, since time.Time) (pddomain.UsageStats, error)
}

// Statistics is an aggregate view across all quota records.
type Statistics struct {
	TotalUsers     int64            `json:"total_users"`
	TotalUsed      int64            `json:"total_used"`
	TotalRemaining int64            `json:"total_remaining"`
	UsersPerPlan   map[string]int64 `json:"users_per_plan"`
	TopConsumers   []UserCredits    `json:"top_consumers"`
}

// UserCredits pairs a user with their spent credits.
type UserCredits struct {
	UserID string `json:"user_id"`
	Used   int    `json:"used"`
}

// EfficiencyMetrics estimates how much the cache layer saves.
type EfficiencyMetrics struct {
	ProviderCalls     int64   `json:"provider_calls"`
	ProviderFailures  int64   `json:"provider_failures"`
	CreditsSpent      int64   `json:"credits_spent"`
	CacheHits         int64   `json:"cache_hits"`
	CacheHitRatio     float64 `json:"cache_hit_ratio"`
	CreditsSavedByHit int64   `json:"credits_saved_by_cache"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrUnknownPlan         = errors.New("unknown_plan")
	ErrInvalidCredits      = errors.New("invalid_credits")
	ErrInsufficientCredits = errors.New("insufficient_credits")
)
