package service

import (
	"context"
	"sync"

	"github.com/propsight/propsight/internal/propertydata/domain"
)

// GetPropertyAnalytics assembles the full analytics view for one postcode.
// The five sub-fetches run concurrently and all outcomes are collected
// before assembly: a failing data type contributes a nil field and an error
// record, never an early return.
func (s *Service) GetPropertyAnalytics(ctx context.Context, userID, postcode string, details domain.PropertyDetails) (*domain.PropertyAnalytics, error) {
	pc := domain.NormalizePostcode(postcode)
	if pc == "" {
		return nil, domain.ErrInvalidPostcode
	}

	result := &domain.PropertyAnalytics{
		Postcode:    pc,
		Errors:      []domain.AnalyticsError{},
		GeneratedAt: s.clock.Now(),
	}

	errs := make([]error, 5)
	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		result.Valuation, errs[0] = s.GetValuation(ctx, userID, pc, details)
	}()
	go func() {
		defer wg.Done()
		result.Rents, errs[1] = s.GetRents(ctx, userID, pc)
	}()
	go func() {
		defer wg.Done()
		result.SoldPrices, errs[2] = s.GetSoldPrices(ctx, userID, pc)
	}()
	go func() {
		defer wg.Done()
		result.Growth, errs[3] = s.GetGrowth(ctx, userID, pc)
	}()
	go func() {
		defer wg.Done()
		result.Demographics, errs[4] = s.GetDemographics(ctx, userID, pc)
	}()

	wg.Wait()

	for i, dataType := range domain.DataTypes() {
		if errs[i] == nil {
			continue
		}
		result.Errors = append(result.Errors, domain.AnalyticsError{
			Type:    string(dataType),
			Message: errs[i].Error(),
		})
	}
	return result, nil
}
