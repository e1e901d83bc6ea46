package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CacheEntry stores one provider response. Entries are never mutated, only
// superseded by a newer row; expired rows are retained as stale fallback.
type CacheEntry struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	Postcode   string         `gorm:"type:text;not null;index:idx_cache_postcode_type"`
	DataType   DataType       `gorm:"type:text;not null;index:idx_cache_postcode_type"`
	Payload    datatypes.JSON `gorm:"not null"`
	CachedAt   time.Time      `gorm:"not null"`
	ExpiresAt  time.Time      `gorm:"not null;index"`
	CreditCost int            `gorm:"not null"`
}

// TableName sets the database table name.
func (CacheEntry) TableName() string { return "cache_entries" }

// Age reports how old the entry is at now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Live reports whether the entry is still within its TTL at now.
func (e *CacheEntry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// HistoricalValuation is an append-only record of every fresh valuation
// fetch, kept so portfolio views can chart value over time.
type HistoricalValuation struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Postcode   string       `gorm:"type:text;not null;index"`
	Estimate   int          `gorm:"not null"`
	RecordedAt time.Time    `gorm:"not null"`
}

func (HistoricalValuation) TableName() string { return "historical_valuations" }

// Usage log outcomes. Cache hits are logged with zero credits so the
// efficiency report can compare hits against live calls.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCacheHit = "cache_hit"
)

// UsageLog records one request against the provider integration.
type UsageLog struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     string       `gorm:"type:text;not null;index"`
	Endpoint   string       `gorm:"type:text;not null;index"`
	Outcome    string       `gorm:"type:text;not null"`
	Credits    int          `gorm:"not null"`
	DurationMs int64        `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null"`
}

func (UsageLog) TableName() string { return "provider_usage_logs" }
