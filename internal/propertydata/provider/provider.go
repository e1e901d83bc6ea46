// Package provider implements the PropertyData API client.
package provider

import (
	"context"

	"github.com/propsight/propsight/internal/propertydata/domain"
)

// Provider fetches live analytics data from the external valuation API.
type Provider interface {
	Valuation(ctx context.Context, postcode string, details domain.PropertyDetails) (*domain.Valuation, error)
	Rents(ctx context.Context, postcode string) (*domain.RentalMarket, error)
	SoldPrices(ctx context.Context, postcode string) (*domain.SoldPrices, error)
	Growth(ctx context.Context, postcode string) (*domain.Growth, error)
	Demographics(ctx context.Context, postcode string) (*domain.Demographics, error)
}
