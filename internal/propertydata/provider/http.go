package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/propsight/propsight/internal/propertydata/domain"
	"github.com/propsight/propsight/internal/ratelimit"
)

const (
	endpointValuation    = "valuation-sale"
	endpointRents        = "rents"
	endpointSoldPrices   = "sold-prices"
	endpointGrowth       = "growth"
	endpointDemographics = "demographics"

	throttleKey = "propsight:provider:propertydata"
)

// Config configures the HTTP provider client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// HTTPProvider calls the PropertyData REST API.
type HTTPProvider struct {
	cfg    Config
	client *http.Client
	bucket *ratelimit.TokenBucket
	log    *zap.Logger
}

func NewHTTP(cfg Config, log *zap.Logger, bucket *ratelimit.TokenBucket) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		bucket: bucket,
		log:    log.Named("propertydata.provider"),
	}
}

type valuationResponse struct {
	Estimate int     `json:"estimate"`
	Margin   float64 `json:"margin"`
	Low      int     `json:"estimate_low"`
	High     int     `json:"estimate_high"`
}

func (p *HTTPProvider) Valuation(ctx context.Context, postcode string, details domain.PropertyDetails) (*domain.Valuation, error) {
	params := url.Values{}
	if details.PropertyType != "" {
		params.Set("property_type", details.PropertyType)
	}
	if details.Bedrooms > 0 {
		params.Set("bedrooms", strconv.Itoa(details.Bedrooms))
	}
	if details.ConstructionDate != "" {
		params.Set("construction_date", details.ConstructionDate)
	}
	if details.FinishQuality != "" {
		params.Set("finish_quality", details.FinishQuality)
	}
	if details.OutdoorSpace != "" {
		params.Set("outdoor_space", details.OutdoorSpace)
	}

	var res valuationResponse
	if err := p.get(ctx, endpointValuation, postcode, params, &res); err != nil {
		return nil, err
	}
	return &domain.Valuation{
		Estimate:      res.Estimate,
		MarginPercent: res.Margin,
		ValueRange:    domain.ValueRange{Low: res.Low, High: res.High},
	}, nil
}

type rentsResponse struct {
	WeeklyRent  int     `json:"average_rent_week"`
	MonthlyRent int     `json:"average_rent_month"`
	GrossYield  float64 `json:"gross_yield"`
	SampleSize  int     `json:"sample_size"`
}

func (p *HTTPProvider) Rents(ctx context.Context, postcode string) (*domain.RentalMarket, error) {
	var res rentsResponse
	if err := p.get(ctx, endpointRents, postcode, nil, &res); err != nil {
		return nil, err
	}
	return &domain.RentalMarket{
		WeeklyRent:  res.WeeklyRent,
		MonthlyRent: res.MonthlyRent,
		GrossYield:  res.GrossYield,
		SampleSize:  res.SampleSize,
	}, nil
}

type soldPricesResponse struct {
	Average      int `json:"average_price"`
	Transactions []struct {
		Address string `json:"address"`
		Price   int    `json:"price"`
		Date    string `json:"date"`
	} `json:"transactions"`
}

func (p *HTTPProvider) SoldPrices(ctx context.Context, postcode string) (*domain.SoldPrices, error) {
	var res soldPricesResponse
	if err := p.get(ctx, endpointSoldPrices, postcode, nil, &res); err != nil {
		return nil, err
	}
	out := &domain.SoldPrices{Average: res.Average}
	for _, tx := range res.Transactions {
		out.Transactions = append(out.Transactions, domain.SoldTransaction{
			Address: tx.Address,
			Price:   tx.Price,
			Date:    tx.Date,
		})
	}
	return out, nil
}

type growthResponse struct {
	Growth []struct {
		Period  string  `json:"period"`
		Percent float64 `json:"percent"`
	} `json:"growth"`
}

func (p *HTTPProvider) Growth(ctx context.Context, postcode string) (*domain.Growth, error) {
	var res growthResponse
	if err := p.get(ctx, endpointGrowth, postcode, nil, &res); err != nil {
		return nil, err
	}
	out := &domain.Growth{}
	for _, period := range res.Growth {
		out.Periods = append(out.Periods, domain.GrowthPeriod{
			Period:        period.Period,
			PercentChange: period.Percent,
		})
	}
	return out, nil
}

type demographicsResponse struct {
	Population int                `json:"population"`
	AgeBands   map[string]float64 `json:"age_bands"`
	Tenure     map[string]float64 `json:"tenure"`
}

func (p *HTTPProvider) Demographics(ctx context.Context, postcode string) (*domain.Demographics, error) {
	var res demographicsResponse
	if err := p.get(ctx, endpointDemographics, postcode, nil, &res); err != nil {
		return nil, err
	}
	return &domain.Demographics{
		Population: res.Population,
		AgeBands:   res.AgeBands,
		Tenure:     res.Tenure,
	}, nil
}

// apiError is the provider's error envelope for non-2xx responses.
type apiError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (p *HTTPProvider) get(ctx context.Context, endpoint, postcode string, params url.Values, out any) error {
	if p.cfg.APIKey == "" {
		return domain.ErrMissingAPIKey
	}

	if p.bucket != nil {
		allow, err := p.bucket.Allow(ctx, throttleKey, p.cfg.RateLimitPerSecond, p.cfg.RateLimitBurst)
		if err != nil {
			p.log.Warn("rate limiter unavailable, proceeding", zap.Error(err))
		} else if !allow.Allowed {
			return fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, allow.RetryAfter)
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", p.cfg.APIKey)
	params.Set("postcode", postcode)

	reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(p.cfg.BaseURL, "/"), endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: %s (%d)", domain.ErrProviderFailure, apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrProviderFailure, endpoint, err)
	}
	return nil
}
