package pricing

import (
	"time"
)

// EmissionFactor is the grid emission factor in tCO2 per MWh, applied
// uniformly regardless of year. Must stay at 0.928 for output parity with
// issued proposals.
const EmissionFactor = 0.928

// Converter turns system sizes into annual generation and carbon credits.
// YieldKWhPerKWp is the assumed full-year generation per installed kWp.
type Converter struct {
	YieldKWhPerKWp float64
}

// NewConverter creates a Converter with the given yield assumption
func NewConverter(yieldKWhPerKWp float64) *Converter {
	return &Converter{YieldKWhPerKWp: yieldKWhPerKWp}
}

// AnnualEnergyKWh returns the full-year generation for a system size
func (c *Converter) AnnualEnergyKWh(sizeKWp float64) float64 {
	return sizeKWp * c.YieldKWhPerKWp
}

// AnnualCarbonCredits returns the full-year carbon credits (tCO2e) for a
// system size.
func (c *Converter) AnnualCarbonCredits(sizeKWp float64) float64 {
	return c.AnnualEnergyKWh(sizeKWp) / 1000 * EmissionFactor
}

// YearFraction returns the fraction of the given calendar year the
// installation is generating, based on the commissioning date:
//   - nil commissioning date: always a full year
//   - years before the commissioning year: 0
//   - the commissioning year: days from the commissioning date through
//     December 31 inclusive, over the days in that year; January 1 counts
//     as a full year
//   - later years: full year
func YearFraction(year int, commissioned *time.Time) float64 {
	if commissioned == nil {
		return 1
	}

	cy := commissioned.Year()
	if year < cy {
		return 0
	}
	if year > cy {
		return 1
	}

	if commissioned.Month() == time.January && commissioned.Day() == 1 {
		return 1
	}

	yearEnd := time.Date(cy, time.December, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(cy, commissioned.Month(), commissioned.Day(), 0, 0, 0, 0, time.UTC)
	remainingDays := int(yearEnd.Sub(start).Hours()/24) + 1
	totalDays := 365
	if isLeapYear(cy) {
		totalDays = 366
	}

	return float64(remainingDays) / float64(totalDays)
}

// CarbonCreditsForYear returns the carbon credits a system earns in one
// calendar year, pro-rated for a partial commissioning year.
func (c *Converter) CarbonCreditsForYear(sizeKWp float64, year int, commissioned *time.Time) float64 {
	return c.AnnualCarbonCredits(sizeKWp) * YearFraction(year, commissioned)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
