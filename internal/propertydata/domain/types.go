// Package domain defines the property analytics types, cache policies and
// service contracts for the PropertyData integration.
package domain

import (
	"strings"
	"time"
)

// DataType identifies one analytics category fetched from the provider.
type DataType string

const (
	DataTypeValuation    DataType = "valuation"
	DataTypeRents        DataType = "rents"
	DataTypeSoldPrices   DataType = "sold_prices"
	DataTypeGrowth       DataType = "growth"
	DataTypeDemographics DataType = "demographics"
)

// DataTypes lists every category in aggregation order.
func DataTypes() []DataType {
	return []DataType{
		DataTypeValuation,
		DataTypeRents,
		DataTypeSoldPrices,
		DataTypeGrowth,
		DataTypeDemographics,
	}
}

// PropertyDetails parameterizes the valuation call only.
type PropertyDetails struct {
	PropertyType     string `json:"property_type"`
	Bedrooms         int    `json:"bedrooms"`
	ConstructionDate string `json:"construction_date"`
	FinishQuality    string `json:"finish_quality"`
	OutdoorSpace     string `json:"outdoor_space"`
}

// ValueRange bounds a valuation estimate.
type ValueRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Valuation is the provider's sale estimate for a single property.
type Valuation struct {
	Estimate      int        `json:"estimate"`
	MarginPercent float64    `json:"margin_percent"`
	ValueRange    ValueRange `json:"value_range"`
}

// RentalMarket summarizes achievable rents around a postcode.
type RentalMarket struct {
	WeeklyRent  int     `json:"weekly_rent"`
	MonthlyRent int     `json:"monthly_rent"`
	GrossYield  float64 `json:"gross_yield"`
	SampleSize  int     `json:"sample_size"`
}

// SoldTransaction is one Land Registry sale near the postcode.
type SoldTransaction struct {
	Address string `json:"address"`
	Price   int    `json:"price"`
	Date    string `json:"date"`
}

// SoldPrices holds recent sold-price evidence for a postcode.
type SoldPrices struct {
	Average      int               `json:"average"`
	Transactions []SoldTransaction `json:"transactions"`
}

// GrowthPeriod is a price-growth figure for one trailing window.
type GrowthPeriod struct {
	Period        string  `json:"period"`
	PercentChange float64 `json:"percent_change"`
}

// Growth holds historical price growth for a postcode area.
type Growth struct {
	Periods []GrowthPeriod `json:"periods"`
}

// Demographics describes the resident population of a postcode area.
type Demographics struct {
	Population int                `json:"population"`
	AgeBands   map[string]float64 `json:"age_bands"`
	Tenure     map[string]float64 `json:"tenure"`
}

// AnalyticsError records one failed data type within an aggregation.
type AnalyticsError struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}

// PropertyAnalytics is the aggregate view for one postcode. It is always
// structurally complete: a failed data type leaves its field nil and appends
// an entry to Errors.
type PropertyAnalytics struct {
	Postcode     string           `json:"postcode"`
	Valuation    *Valuation       `json:"valuation"`
	Rents        *RentalMarket    `json:"rents"`
	SoldPrices   *SoldPrices      `json:"sold_prices"`
	Growth       *Growth          `json:"growth"`
	Demographics *Demographics    `json:"demographics"`
	Errors       []AnalyticsError `json:"errors"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// BatchRequest is one property within a batch analytics call.
type BatchRequest struct {
	Postcode string           `json:"postcode"`
	Details  *PropertyDetails `json:"details"`
}

// NormalizePostcode uppercases and strips all internal whitespace so
// "sw1a 1aa" and "SW1A1AA" share a cache key.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
}
