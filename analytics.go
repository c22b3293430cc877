package folio

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxDrawdown computes the deepest peak-to-trough decline of the portfolio
// over an ascending-date performance series, as a negative percentage.
//
// The NAV is chained from per-day returns on equity. Days with a nonzero
// external cash flow contribute no return: a deposit or withdrawal moves
// equity without being investment performance, so the chain resumes from
// that day's equity instead of treating the jump as a gain or loss.
func MaxDrawdown(series []PortfolioPerformance) decimal.Decimal {
	nav, peak := one, one
	maxDD := decimal.Zero
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if cur.Transaction.IsZero() && prev.Equity().IsPositive() {
			ret := cur.Equity().Div(prev.Equity()).Sub(one)
			nav = nav.Mul(one.Add(ret))
		}
		if nav.GreaterThan(peak) {
			peak = nav
		}
		dd := nav.Sub(peak).Div(peak)
		if dd.LessThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.Mul(hundred)
}

// TimeWeightedReturn computes the TWRR of an ascending-date performance
// series, in percent.
//
// The series is cut into sub-periods ending at each cash-flow day. A
// sub-period's return is (equityEnd - equityStart - flow) / equityStart,
// zero when the starting equity is zero. The factors (1+r) compound across
// all sub-periods, including a final trailing sub-period from the last
// cash-flow day through the end of the series.
func TimeWeightedReturn(series []PortfolioPerformance) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	product := one
	startEquity := series[0].Equity()
	for _, p := range series[1:] {
		if p.Transaction.IsZero() {
			continue
		}
		ret := decimal.Zero
		if !startEquity.IsZero() {
			ret = p.Equity().Sub(startEquity).Sub(p.Transaction).Div(startEquity)
		}
		product = product.Mul(one.Add(ret))
		startEquity = p.Equity()
	}
	// Trailing sub-period with no cash flow.
	last := series[len(series)-1].Equity()
	ret := decimal.Zero
	if !startEquity.IsZero() {
		ret = last.Sub(startEquity).Div(startEquity)
	}
	product = product.Mul(one.Add(ret))
	return product.Sub(one).Mul(hundred)
}
