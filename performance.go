package folio

import (
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// PortfolioPerformance is the derived daily aggregate of all of a user's
// accounts, converted into the user's preferred currency. There is exactly
// one row per (user, date).
//
// Transaction is the day's net external cash movement across all accounts.
// It represents flow rather than stock and lets the analytics distinguish
// deposits and withdrawals from investment performance.
type PortfolioPerformance struct {
	UserID      string
	Date        date.Date
	Principal   decimal.Decimal
	Balance     decimal.Decimal
	Float       decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	Transaction decimal.Decimal
}

// Equity is the total portfolio value: cash plus floating equity.
func (p PortfolioPerformance) Equity() decimal.Decimal {
	return p.Balance.Add(p.Float)
}

// Profit is the portfolio's gain over contributed capital.
func (p PortfolioPerformance) Profit() decimal.Decimal {
	return p.Equity().Sub(p.Principal)
}

// ProfitPercent is Profit relative to Principal, in percent.
// It is zero when no capital has been contributed.
func (p PortfolioPerformance) ProfitPercent() decimal.Decimal {
	if p.Principal.IsZero() {
		return decimal.Zero
	}
	return p.Profit().Div(p.Principal).Mul(decimal.NewFromInt(100))
}
