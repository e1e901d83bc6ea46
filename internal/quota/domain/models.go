// Package domain contains quota accounting models and contracts.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// UsageBreakdown splits a user's spent credits by operation category.
type UsageBreakdown struct {
	Valuations    int `json:"valuations"`
	Rents         int `json:"rents"`
	SoldPrices    int `json:"sold_prices"`
	Growth        int `json:"growth"`
	Demographics  int `json:"demographics"`
	BatchRequests int `json:"batch_requests"`
}

// Add increments the category matching endpoint by credits. Unrecognized
// endpoints land in BatchRequests so nothing spent goes uncounted.
func (b *UsageBreakdown) Add(endpoint string, credits int) {
	switch endpoint {
	case "valuation":
		b.Valuations += credits
	case "rents":
		b.Rents += credits
	case "sold_prices":
		b.SoldPrices += credits
	case "growth":
		b.Growth += credits
	case "demographics":
		b.Demographics += credits
	default:
		b.BatchRequests += credits
	}
}

// QuotaUsage is the persisted subscription state for one user.
type QuotaUsage struct {
	UserID           string                                 `gorm:"primaryKey;type:text" json:"user_id"`
	PlanID           string                                 `gorm:"type:text;not null" json:"plan_id"`
	UsedCredits      int                                    `gorm:"not null" json:"used_credits"`
	RemainingCredits int                                    `gorm:"not null" json:"remaining_credits"`
	ResetAt          time.Time                              `gorm:"not null;index" json:"reset_at"`
	Breakdown        datatypes.JSONType[UsageBreakdown]     `json:"breakdown"`
	CreatedAt        time.Time                              `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                              `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (QuotaUsage) TableName() string { return "quota_usages" }

// NextResetAt returns the first instant of the month after now, UTC.
func NextResetAt(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
