package domain

// Plan is a static subscription catalog entry. Plan identifiers are
// immutable once a user references them.
type Plan struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MonthlyCredits int      `json:"monthly_credits"`
	Features       []string `json:"features"`
	PricePence     int      `json:"price_pence"`
}

// DefaultPlanID is assigned on first quota lookup.
const DefaultPlanID = "starter"

var plans = []Plan{
	{
		ID:             "starter",
		Name:           "Starter",
		MonthlyCredits: 20,
		Features:       []string{"valuations", "rents"},
		PricePence:     0,
	},
	{
		ID:             "portfolio",
		Name:           "Portfolio",
		MonthlyCredits: 100,
		Features:       []string{"valuations", "rents", "sold_prices", "growth"},
		PricePence:     1900,
	},
	{
		ID:             "professional",
		Name:           "Professional",
		MonthlyCredits: 500,
		Features:       []string{"valuations", "rents", "sold_prices", "growth", "demographics", "batch"},
		PricePence:     4900,
	},
}

// PlanByID looks up a catalog plan.
func PlanByID(id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Plans returns the full catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}
