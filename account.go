package folio

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// AccountType distinguishes cash-only accounts from brokerage accounts.
type AccountType string

const (
	// Deposit is a cash account: transactions only, no trades.
	Deposit AccountType = "deposit"
	// Broker is a brokerage account that can hold securities.
	Broker AccountType = "broker"
)

// Account is a single-currency account belonging to one user. Its daily
// balance history is entirely derived from the events recorded against it.
type Account struct {
	ID       string
	UserID   string
	Name     string
	Type     AccountType
	Currency string
	Active   bool
}

// AccountBalance is the derived snapshot of an account at the end of one
// calendar day. There is exactly one row per (account, date) and the series
// is contiguous from the account's first event through at least today.
//
// Balance, Fee, Tax and Principal are running totals; Float is the
// mark-to-market value of positions still held on that day.
type AccountBalance struct {
	AccountID string
	Date      date.Date
	Balance   decimal.Decimal
	Fee       decimal.Decimal
	Tax       decimal.Decimal
	Principal decimal.Decimal
	Float     decimal.Decimal
}

// Equity is the total value of the account: cash plus floating equity.
func (b AccountBalance) Equity() decimal.Decimal {
	return b.Balance.Add(b.Float)
}

// Profit is the account's gain over the external capital contributed.
func (b AccountBalance) Profit() decimal.Decimal {
	return b.Equity().Sub(b.Principal)
}

// ProfitPercent is Profit relative to Principal, as a ratio.
// It is zero when no capital has been contributed.
func (b AccountBalance) ProfitPercent() decimal.Decimal {
	if b.Principal.IsZero() {
		return decimal.Zero
	}
	return b.Profit().Div(b.Principal)
}

// UserPreference holds per-user display settings. The Currency is the target
// currency every portfolio aggregate is converted into; changing it forces a
// full rebuild of the user's portfolio history.
type UserPreference struct {
	UserID   string
	Currency string
	Language string
}

// ValidateCurrency reports whether the code is a known ISO-4217 currency.
func ValidateCurrency(code string) error {
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}
