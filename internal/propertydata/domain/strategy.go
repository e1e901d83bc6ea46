package domain

import "time"

// CacheStrategy is the static caching policy for one data type.
type CacheStrategy struct {
	// TTL is how long a cache entry is considered live.
	TTL time.Duration
	// RefreshAfter, when non-zero, proactively refetches a still-live entry
	// older than this age. Must be shorter than TTL.
	RefreshAfter time.Duration
	// CreditCost is charged for one live provider call of this type.
	CreditCost int
}

const day = 24 * time.Hour

// Strategies maps every data type to its caching policy. Valuations and
// rents move with the market, so they refresh well before their TTL;
// demographics barely change between censuses.
var Strategies = map[DataType]CacheStrategy{
	DataTypeValuation:    {TTL: 30 * day, RefreshAfter: 7 * day, CreditCost: 2},
	DataTypeRents:        {TTL: 30 * day, RefreshAfter: 7 * day, CreditCost: 1},
	DataTypeSoldPrices:   {TTL: 90 * day, CreditCost: 1},
	DataTypeGrowth:       {TTL: 90 * day, CreditCost: 1},
	DataTypeDemographics: {TTL: 180 * day, CreditCost: 1},
}

// StrategyFor returns the policy for dataType.
func StrategyFor(dataType DataType) (CacheStrategy, bool) {
	s, ok := Strategies[dataType]
	return s, ok
}
