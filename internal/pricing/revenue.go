package pricing

import (
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// YearRevenue is one row of a revenue table
type YearRevenue struct {
	Year    int             `json:"year"`
	Credits float64         `json:"credits"`
	Price   decimal.Decimal `json:"price"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueTable is the per-year revenue for one party (client or agent)
type RevenueTable struct {
	Years []YearRevenue   `json:"years"`
	Total decimal.Decimal `json:"total"`
}

// RevenueForYear computes a single year's revenue: credits x price x pct/100,
// rounded half-up to whole currency units.
func RevenueForYear(credits float64, price decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(credits).
		Mul(price).
		Mul(percent).
		Div(oneHundred).
		Round(0)
}

// BuildRevenueTable computes the per-year revenue for every year present in
// the price table. A year without a price contributes zero revenue; that is
// a degraded result, not an error.
func BuildRevenueTable(conv *Converter, sizeKWp float64, commissioned *time.Time, prices map[int]decimal.Decimal, percent decimal.Decimal) RevenueTable {
	years := make([]int, 0, len(prices))
	for year := range prices {
		years = append(years, year)
	}
	sort.Ints(years)

	table := RevenueTable{Total: decimal.Zero}
	for _, year := range years {
		credits := conv.CarbonCreditsForYear(sizeKWp, year, commissioned)

		price, ok := prices[year]
		if !ok || price.IsZero() {
			log.Printf("Warning: no carbon price for year %d, revenue treated as zero", year)
			table.Years = append(table.Years, YearRevenue{Year: year, Credits: credits, Price: decimal.Zero, Revenue: decimal.Zero})
			continue
		}

		revenue := RevenueForYear(credits, price, percent)
		table.Years = append(table.Years, YearRevenue{
			Year:    year,
			Credits: credits,
			Price:   price,
			Revenue: revenue,
		})
		table.Total = table.Total.Add(revenue)
	}

	return table
}
