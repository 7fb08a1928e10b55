package pricing

import (
	"github.com/shopspring/decimal"
)

// Tier defines a revenue-share percentage for portfolio sizes at or above
// MinKWp. Tiers are checked from largest to smallest; bands are half-open,
// so a 5,000 kWp portfolio already earns the second client tier.
type Tier struct {
	MinKWp  float64
	Percent decimal.Decimal
}

// ClientShareTiers maps aggregate client portfolio size (kWp) to the client's
// share of carbon-credit revenue.
var ClientShareTiers = []Tier{
	{30000, decimal.NewFromFloat(73.5)},
	{20000, decimal.NewFromFloat(70)},
	{10000, decimal.NewFromFloat(67.9)},
	{5000, decimal.NewFromFloat(66.5)},
	{0, decimal.NewFromFloat(63)},
}

// AgentCommissionTiers maps aggregate agent portfolio size (kWp) to the
// agent's commission percentage.
var AgentCommissionTiers = []Tier{
	{15000, decimal.NewFromFloat(7)},
	{0, decimal.NewFromFloat(4)},
}

// ClientSharePercent returns the client revenue-share percentage for the
// given portfolio size.
func ClientSharePercent(portfolioKWp float64) decimal.Decimal {
	return tierPercent(ClientShareTiers, portfolioKWp)
}

// AgentCommissionPercent returns the agent commission percentage for the
// given portfolio size.
func AgentCommissionPercent(portfolioKWp float64) decimal.Decimal {
	return tierPercent(AgentCommissionTiers, portfolioKWp)
}

func tierPercent(tiers []Tier, portfolioKWp float64) decimal.Decimal {
	for _, tier := range tiers {
		if portfolioKWp >= tier.MinKWp {
			return tier.Percent
		}
	}
	// Negative input falls through; treat as the base tier.
	return tiers[len(tiers)-1].Percent
}
