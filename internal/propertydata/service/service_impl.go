package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/propsight/propsight/internal/clock"
	obsmetrics "github.com/propsight/propsight/internal/observability/metrics"
	"github.com/propsight/propsight/internal/propertydata/domain"
	"github.com/propsight/propsight/internal/propertydata/provider"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Provider provider.Provider
	QuotaSvc quotadomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Service is the response cache manager plus the analytics surfaces built
// on top of it.
type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	provider provider.Provider
	quotaSvc quotadomain.Service
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("propertydata.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
		quotaSvc: p.QuotaSvc,
		metrics:  p.Metrics,
	}
}

// cachedFetch is the single decision point for serving cached data versus
// fetching fresh. fetch performs the billable call (quota deduction included)
// and runs only when the cache cannot satisfy the request; on fetch failure
// any retained entry, even expired, is served as a degraded result.
func cachedFetch[T any](ctx context.Context, s *Service, userID, postcode string, dataType domain.DataType, fetch func(context.Context) (*T, error)) (*T, error) {
	strategy, ok := domain.StrategyFor(dataType)
	if !ok {
		return nil, domain.ErrUnknownDataType
	}

	now := s.clock.Now()
	entry, err := s.repo.FindLive(ctx, postcode, dataType, now)
	if err != nil {
		// A broken cache store must not take the feature down.
		s.log.Warn("cache lookup failed",
			zap.String("postcode", postcode),
			zap.String("data_type", string(dataType)),
			zap.Error(err),
		)
		entry = nil
	}

	if entry != nil && (strategy.RefreshAfter == 0 || entry.Age(now) < strategy.RefreshAfter) {
		value, decodeErr := decodePayload[T](entry.Payload)
		if decodeErr == nil {
			s.metrics.IncCacheHit(string(dataType))
			s.logUsage(ctx, userID, dataType, domain.OutcomeCacheHit, strategy.CreditCost, 0)
			return value, nil
		}
		s.log.Warn("cached payload corrupt, refetching",
			zap.String("postcode", postcode),
			zap.String("data_type", string(dataType)),
			zap.Error(decodeErr),
		)
	}

	s.metrics.IncCacheMiss(string(dataType))
	start := time.Now()
	value, fetchErr := fetch(ctx)
	elapsed := time.Since(start)

	if fetchErr == nil {
		payload, marshalErr := json.Marshal(value)
		if marshalErr == nil {
			newEntry := &domain.CacheEntry{
				ID:         s.genID.Generate(),
				Postcode:   postcode,
				DataType:   dataType,
				Payload:    datatypes.JSON(payload),
				CachedAt:   now,
				ExpiresAt:  now.Add(strategy.TTL),
				CreditCost: strategy.CreditCost,
			}
			if insertErr := s.repo.Insert(ctx, newEntry); insertErr != nil {
				s.log.Warn("cache write failed",
					zap.String("postcode", postcode),
					zap.String("data_type", string(dataType)),
					zap.Error(insertErr),
				)
			}
		}
		s.metrics.ObserveProviderCall(string(dataType), domain.OutcomeSuccess, elapsed.Seconds())
		s.logUsage(ctx, userID, dataType, domain.OutcomeSuccess, strategy.CreditCost, elapsed)
		return value, nil
	}

	if errors.Is(fetchErr, quotadomain.ErrInsufficientCredits) {
		// No provider call was made; surface directly, never downgrade to
		// stale data.
		return nil, fetchErr
	}

	s.metrics.ObserveProviderCall(string(dataType), domain.OutcomeFailure, elapsed.Seconds())
	s.logUsage(ctx, userID, dataType, domain.OutcomeFailure, 0, elapsed)

	stale, staleErr := s.repo.FindAny(ctx, postcode, dataType)
	if staleErr == nil && stale != nil {
		if value, decodeErr := decodePayload[T](stale.Payload); decodeErr == nil {
			s.metrics.IncStaleServed(string(dataType))
			s.log.Warn("serving stale cache after fetch failure",
				zap.String("postcode", postcode),
				zap.String("data_type", string(dataType)),
				zap.Duration("age", stale.Age(now)),
				zap.Error(fetchErr),
			)
			return value, nil
		}
	}

	return nil, fetchErr
}

func decodePayload[T any](payload datatypes.JSON) (*T, error) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func (s *Service) logUsage(ctx context.Context, userID string, dataType domain.DataType, outcome string, credits int, elapsed time.Duration) {
	entry := &domain.UsageLog{
		ID:         s.genID.Generate(),
		UserID:     userID,
		Endpoint:   string(dataType),
		Outcome:    outcome,
		Credits:    credits,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertUsageLog(ctx, entry); err != nil {
		s.log.Warn("usage log write failed", zap.Error(err))
	}
}

// deduct charges the user before the provider call is made; a rejection
// must happen before any billable side effect.
func (s *Service) deduct(ctx context.Context, userID, postcode string, dataType domain.DataType) error {
	strategy, _ := domain.StrategyFor(dataType)
	_, err := s.quotaSvc.DeductCredits(ctx, userID, strategy.CreditCost, string(dataType), map[string]any{
		"postcode": postcode,
	})
	return err
}

func (s *Service) GetValuation(ctx context.Context, userID, postcode string, details domain.PropertyDetails) (*domain.Valuation, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}

	return cachedFetch(ctx, s, userID, pc, domain.DataTypeValuation, func(ctx context.Context) (*domain.Valuation, error) {
		if err := s.deduct(ctx, userID, pc, domain.DataTypeValuation); err != nil {
			return nil, err
		}
		valuation, err := s.provider.Valuation(ctx, pc, details)
		if err != nil {
			return nil, err
		}
		record := &domain.HistoricalValuation{
			ID:         s.genID.Generate(),
			Postcode:   pc,
			Estimate:   valuation.Estimate,
			RecordedAt: s.clock.Now(),
		}
		if err := s.repo.InsertHistoricalValuation(ctx, record); err != nil {
			s.log.Warn("historical valuation write failed", zap.Error(err))
		}
		return valuation, nil
	})
}

func (s *Service) GetRents(ctx context.Context, userID, postcode string) (*domain.RentalMarket, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}
	return cachedFetch(ctx, s, userID, pc, domain.DataTypeRents, func(ctx context.Context) (*domain.RentalMarket, error) {
		if err := s.deduct(ctx, userID, pc, domain.DataTypeRents); err != nil {
			return nil, err
		}
		return s.provider.Rents(ctx, pc)
	})
}

func (s *Service) GetSoldPrices(ctx context.Context, userID, postcode string) (*domain.SoldPrices, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}
	return cachedFetch(ctx, s, userID, pc, domain.DataTypeSoldPrices, func(ctx context.Context) (*domain.SoldPrices, error) {
		if err := s.deduct(ctx, userID, pc, domain.DataTypeSoldPrices); err != nil {
			return nil, err
		}
		return s.provider.SoldPrices(ctx, pc)
	})
}

func (s *Service) GetGrowth(ctx context.Context, userID, postcode string) (*domain.Growth, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}
	return cachedFetch(ctx, s, userID, pc, domain.DataTypeGrowth, func(ctx context.Context) (*domain.Growth, error) {
		if err := s.deduct(ctx, userID, pc, domain.DataTypeGrowth); err != nil {
			return nil, err
		}
		return s.provider.Growth(ctx, pc)
	})
}

func (s *Service) GetDemographics(ctx context.Context, userID, postcode string) (*domain.Demographics, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}
	return cachedFetch(ctx, s, userID, pc, domain.DataTypeDemographics, func(ctx context.Context) (*domain.Demographics, error) {
		if err := s.deduct(ctx, userID, pc, domain.DataTypeDemographics); err != nil {
			return nil, err
		}
		return s.provider.Demographics(ctx, pc)
	})
}

func (s *Service) DeletePropertyCache(ctx context.Context, postcode string) error {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return domain.ErrInvalidPostcode
	}
	deleted, err := s.repo.DeleteByPostcode(ctx, pc)
	if err != nil {
		return err
	}
	s.log.Info("property cache purged",
		zap.String("postcode", pc),
		zap.Int64("entries", deleted),
	)
	return nil
}
