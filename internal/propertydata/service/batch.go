package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/propsight/propsight/internal/propertydata/domain"
)

const batchGroupConcurrency = 4

// BatchPropertyAnalytics runs analytics for many properties while fetching
// each distinct postcode only once. Output length and order match the input;
// a postcode group that fails outright yields a batch_error result for its
// members without touching any other group.
func (s *Service) BatchPropertyAnalytics(ctx context.Context, userID string, requests []domain.BatchRequest) ([]*domain.PropertyAnalytics, error) {
	results := make([]*domain.PropertyAnalytics, len(requests))
	if len(requests) == 0 {
		return results, nil
	}

	type group struct {
		postcode string
		details  domain.PropertyDetails
		indices  []int
	}

	order := make([]string, 0, len(requests))
	groups := map[string]*group{}
	for i, req := range requests {
		pc := domain.NormalizePostcode(req.Postcode)
		g, ok := groups[pc]
		if !ok {
			g = &group{postcode: pc}
			if req.Details != nil {
				g.details = *req.Details
			}
			groups[pc] = g
			order = append(order, pc)
		}
		g.indices = append(g.indices, i)
	}
	s.metrics.ObserveBatchGroups(len(order))

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.SetLimit(batchGroupConcurrency)

	for _, pc := range order {
		g := groups[pc]
		eg.Go(func() error {
			analytics := s.runGroup(groupCtx, userID, g.postcode, g.details)
			for _, idx := range g.indices {
				results[idx] = analytics
			}
			return nil
		})
	}

	// Group errors never surface through the errgroup; each group resolves
	// to a result. Wait only joins the goroutines.
	_ = eg.Wait()
	return results, nil
}

// runGroup isolates one postcode group: an aggregation error or panic is
// converted into a structurally valid result carrying a single batch_error.
func (s *Service) runGroup(ctx context.Context, userID, postcode string, details domain.PropertyDetails) (result *domain.PropertyAnalytics) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("batch group panicked",
				zap.String("postcode", postcode),
				zap.Any("panic", r),
			)
			result = s.batchErrorResult(postcode, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()

	analytics, err := s.GetPropertyAnalytics(ctx, userID, postcode, details)
	if err != nil {
		return s.batchErrorResult(postcode, err.Error())
	}
	return analytics
}

func (s *Service) batchErrorResult(postcode, message string) *domain.PropertyAnalytics {
	return &domain.PropertyAnalytics{
		Postcode:    postcode,
		Errors:      []domain.AnalyticsError{{Type: "batch_error", Message: message}},
		GeneratedAt: s.clock.Now(),
	}
}
