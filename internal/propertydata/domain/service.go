package domain

import (
	"context"
	"errors"
	"time"
)

// Service is the property analytics surface exposed to callers.
type Service interface {
	GetValuation(ctx context.Context, userID, postcode string, details PropertyDetails) (*Valuation, error)
	GetRents(ctx context.Context, userID, postcode string) (*RentalMarket, error)
	GetSoldPrices(ctx context.Context, userID, postcode string) (*SoldPrices, error)
	GetGrowth(ctx context.Context, userID, postcode string) (*Growth, error)
	GetDemographics(ctx context.Context, userID, postcode string) (*Demographics, error)

	GetPropertyAnalytics(ctx context.Context, userID, postcode string, details PropertyDetails) (*PropertyAnalytics, error)
	BatchPropertyAnalytics(ctx context.Context, userID string, requests []BatchRequest) ([]*PropertyAnalytics, error)

	DeletePropertyCache(ctx context.Context, postcode string) error
}

// Repository is the persisted cache store behind the service.
type Repository interface {
	FindLive(ctx context.Context, postcode string, dataType DataType, now time.Time) (*CacheEntry, error)
	FindAny(ctx context.Context, postcode string, dataType DataType) (*CacheEntry, error)
	Insert(ctx context.Context, entry *CacheEntry) error
	DeleteByPostcode(ctx context.Context, postcode string) (int64, error)

	InsertHistoricalValuation(ctx context.Context, record *HistoricalValuation) error
	InsertUsageLog(ctx context.Context, entry *UsageLog) error
	UsageStats(ctx context.Context, since time.Time) (UsageStats, error)
}

// UsageStats aggregates provider call outcomes for efficiency reporting.
// TotalCalls counts live provider calls only; cache hits are separate.
type UsageStats struct {
	TotalCalls   int64            `json:"total_calls"`
	Successes    int64            `json:"successes"`
	Failures     int64            `json:"failures"`
	CacheHits    int64            `json:"cache_hits"`
	CreditsSpent int64            `json:"credits_spent"`
	CreditsSaved int64            `json:"credits_saved"`
	CallsPerType map[string]int64 `json:"calls_per_type"`
}

var (
	ErrUnknownDataType = errors.New("unknown_data_type")
	ErrMissingAPIKey   = errors.New("provider_api_key_missing")
	ErrProviderFailure = errors.New("provider_failure")
	ErrInvalidPostcode = errors.New("invalid_postcode")
	ErrRateLimited     = errors.New("provider_rate_limited")
)
