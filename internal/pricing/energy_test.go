package pricing

import (
	"math"
	"testing"
	"time"
)

func TestConstantPropagation(t *testing.T) {
	// For 1000 kWp with yield Y, credits must be (1000*Y/1000) * 0.928.
	conv := NewConverter(1400)

	energy := conv.AnnualEnergyKWh(1000)
	if energy != 1000*1400.0 {
		t.Errorf("AnnualEnergyKWh(1000) = %v, want %v", energy, 1000*1400.0)
	}

	credits := conv.AnnualCarbonCredits(1000)
	want := (1000 * 1400.0 / 1000) * 0.928
	if math.Abs(credits-want) > 1e-9 {
		t.Errorf("AnnualCarbonCredits(1000) = %v, want %v", credits, want)
	}
}

func TestYearFractionJanuaryFirstIsFullYear(t *testing.T) {
	commissioned := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := YearFraction(2025, &commissioned); got != 1 {
		t.Errorf("YearFraction(2025, Jan 1) = %v, want 1", got)
	}
}

func TestYearFractionMidYearStrictlyBetween(t *testing.T) {
	// Non-leap year, commissioned July 2.
	commissioned := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)
	got := YearFraction(2025, &commissioned)
	if got <= 0 || got >= 1 {
		t.Fatalf("YearFraction(2025, Jul 2) = %v, want strictly between 0 and 1", got)
	}

	// July 2 through December 31 inclusive is 183 days of 365.
	want := 183.0 / 365.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("YearFraction(2025, Jul 2) = %v, want %v", got, want)
	}
}

func TestYearFractionLeapYearDenominator(t *testing.T) {
	commissioned := time.Date(2028, time.December, 31, 0, 0, 0, 0, time.UTC)
	got := YearFraction(2028, &commissioned)
	want := 1.0 / 366.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("YearFraction(2028, Dec 31) = %v, want %v", got, want)
	}
}

func TestYearFractionOtherYears(t *testing.T) {
	commissioned := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)

	if got := YearFraction(2024, &commissioned); got != 0 {
		t.Errorf("year before commissioning: got %v, want 0", got)
	}
	if got := YearFraction(2026, &commissioned); got != 1 {
		t.Errorf("year after commissioning: got %v, want 1", got)
	}
}

func TestYearFractionMissingDate(t *testing.T) {
	if got := YearFraction(2025, nil); got != 1 {
		t.Errorf("YearFraction with nil date = %v, want 1", got)
	}
}

func TestCarbonCreditsForYearProRates(t *testing.T) {
	conv := NewConverter(1400)
	commissioned := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)

	full := conv.AnnualCarbonCredits(2000)
	partial := conv.CarbonCreditsForYear(2000, 2025, &commissioned)

	if partial <= 0 || partial >= full {
		t.Fatalf("pro-rated credits %v not strictly between 0 and full-year %v", partial, full)
	}
	if got := conv.CarbonCreditsForYear(2000, 2026, &commissioned); got != full {
		t.Errorf("post-commissioning year credits = %v, want %v", got, full)
	}
}
