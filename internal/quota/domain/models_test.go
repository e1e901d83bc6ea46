package domain

import (
	"testing"
	"time"
)

func TestNextResetAt(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{
			time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC),
			time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// First of month still rolls to the next month.
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		if got := NextResetAt(tc.now); !got.Equal(tc.want) {
			t.Errorf("NextResetAt(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestUsageBreakdownAdd(t *testing.T) {
	var b UsageBreakdown
	b.Add("valuation", 2)
	b.Add("rents", 1)
	b.Add("sold_prices", 1)
	b.Add("growth", 1)
	b.Add("demographics", 1)
	b.Add("something_else", 3)

	if b.Valuations != 2 || b.Rents != 1 || b.SoldPrices != 1 || b.Growth != 1 || b.Demographics != 1 {
		t.Errorf("unexpected breakdown: %+v", b)
	}
	if b.BatchRequests != 3 {
		t.Errorf("unknown endpoint should land in BatchRequests, got %d", b.BatchRequests)
	}
}

func TestPlanCatalog(t *testing.T) {
	plan, ok := PlanByID(DefaultPlanID)
	if !ok {
		t.Fatal("default plan missing from catalog")
	}
	if plan.MonthlyCredits != 20 {
		t.Errorf("starter credits = %d, want 20", plan.MonthlyCredits)
	}

	if _, ok := PlanByID("enterprise"); ok {
		t.Error("PlanByID should reject unknown plans")
	}

	all := Plans()
	if len(all) != 3 {
		t.Fatalf("catalog has %d plans, want 3", len(all))
	}
	// Mutating the returned slice must not touch the catalog.
	all[0].MonthlyCredits = 9999
	fresh, _ := PlanByID(DefaultPlanID)
	if fresh.MonthlyCredits != 20 {
		t.Error("Plans() must return a copy of the catalog")
	}
}
