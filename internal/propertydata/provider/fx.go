package provider

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/propsight/propsight/internal/config"
	"github.com/propsight/propsight/internal/ratelimit"
)

// Module provides the PropertyData HTTP client.
var Module = fx.Module("propertydata.provider",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger, bucket *ratelimit.TokenBucket) Provider {
	return NewHTTP(Config{
		BaseURL:            cfg.PropertyData.BaseURL,
		APIKey:             cfg.PropertyData.APIKey,
		Timeout:            cfg.PropertyData.Timeout,
		RateLimitPerSecond: cfg.PropertyData.RateLimitPerSecond,
		RateLimitBurst:     cfg.PropertyData.RateLimitBurst,
	}, log, bucket)
}
