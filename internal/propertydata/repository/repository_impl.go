package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/propsight/propsight/internal/propertydata/domain"
)

type repo struct {
	db *gorm.DB
}

// Provide returns the gorm-backed cache store.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindLive(ctx context.Context, postcode string, dataType domain.DataType, now time.Time) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("postcode = ? AND data_type = ? AND expires_at > ?", postcode, dataType, now).
		Order("cached_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) FindAny(ctx context.Context, postcode string, dataType domain.DataType) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("postcode = ? AND data_type = ?", postcode, dataType).
		Order("cached_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) Insert(ctx context.Context, entry *domain.CacheEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) DeleteByPostcode(ctx context.Context, postcode string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("postcode = ?", postcode).
		Delete(&domain.CacheEntry{})
	return res.RowsAffected, res.Error
}

func (r *repo) InsertHistoricalValuation(ctx context.Context, record *domain.HistoricalValuation) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) InsertUsageLog(ctx context.Context, entry *domain.UsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) UsageStats(ctx context.Context, since time.Time) (domain.UsageStats, error) {
	stats := domain.UsageStats{CallsPerType: map[string]int64{}}

	var rows []struct {
		Endpoint string
		Outcome  string
		Calls    int64
		Credits  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select("endpoint, outcome, COUNT(*) AS calls, COALESCE(SUM(credits), 0) AS credits").
		Where("created_at >= ?", since).
		Group("endpoint, outcome").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, row := range rows {
		switch row.Outcome {
		case domain.OutcomeSuccess:
			stats.TotalCalls += row.Calls
			stats.CallsPerType[row.Endpoint] += row.Calls
			stats.Successes += row.Calls
			stats.CreditsSpent += row.Credits
		case domain.OutcomeFailure:
			stats.TotalCalls += row.Calls
			stats.CallsPerType[row.Endpoint] += row.Calls
			stats.Failures += row.Calls
		case domain.OutcomeCacheHit:
			stats.CacheHits += row.Calls
			stats.CreditsSaved += row.Credits
		}
	}
	return stats, nil
}
