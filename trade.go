package folio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// TradeEntry is a buy establishing (or adding to) a position in a security.
// Its Exits record the partial sells made against it.
type TradeEntry struct {
	ID         string
	AccountID  string
	SecurityID string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
	Tax        decimal.Decimal
	Date       date.Date
	Note       string
	Exits      []TradeExit
}

// GrossAmount is quantity times price.
func (e TradeEntry) GrossAmount() decimal.Decimal {
	return e.Quantity.Mul(e.Price)
}

// NetAmount is the total cash outflow of the buy, costs included.
func (e TradeEntry) NetAmount() decimal.Decimal {
	return e.GrossAmount().Add(e.Fee).Add(e.Tax)
}

// FilledQuantityAt sums the quantity of all exits dated on or before 'on'.
func (e TradeEntry) FilledQuantityAt(on date.Date) decimal.Decimal {
	filled := decimal.Zero
	for _, x := range e.Exits {
		if !x.Date.After(on) {
			filled = filled.Add(x.Quantity)
		}
	}
	return filled
}

// RemainingQuantityAt returns the quantity still held as of 'on'. It is zero
// before the entry date and never negative.
func (e TradeEntry) RemainingQuantityAt(on date.Date) decimal.Decimal {
	if on.Before(e.Date) {
		return decimal.Zero
	}
	remaining := e.Quantity.Sub(e.FilledQuantityAt(on))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsClosed reports whether the position is fully exited as of today.
func (e TradeEntry) IsClosed() bool {
	return e.RemainingQuantityAt(date.Today()).IsZero()
}

// TradeExit is a (possibly partial) sell against one trade entry.
type TradeExit struct {
	ID       string
	EntryID  string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fee      decimal.Decimal
	Tax      decimal.Decimal
	Date     date.Date
}

// GrossAmount is quantity times price.
func (x TradeExit) GrossAmount() decimal.Decimal {
	return x.Quantity.Mul(x.Price)
}

// NetAmount is the cash inflow of the sell, costs deducted.
func (x TradeExit) NetAmount() decimal.Decimal {
	return x.GrossAmount().Sub(x.Fee).Sub(x.Tax)
}

// Profit is the realized gain of this exit:
// (exit price - entry price) * quantity, minus the exit's own costs and the
// share of the entry's costs prorated by the fraction of the entry closed.
func (x TradeExit) Profit(entry TradeEntry) decimal.Decimal {
	gross := x.Price.Sub(entry.Price).Mul(x.Quantity)
	fraction := x.Quantity.Div(entry.Quantity)
	entryCostShare := entry.Fee.Add(entry.Tax).Mul(fraction)
	cost := entryCostShare.Add(x.Fee).Add(x.Tax)
	return gross.Sub(cost)
}

// ValidateExit checks that an exit can be recorded against its entry: the
// entry must exist, the quantity must be positive, and the entry's exits
// taken together must never exceed its quantity. The total is what matters:
// exits cannot predate the entry, so a cap on the sum also caps the
// cumulative quantity as of every date, including exits slotted in
// retroactively before existing ones. When editing, the exit's previous
// quantity is excluded from the total (the entry's Exits may still contain
// the old version of x).
func ValidateExit(entry TradeEntry, x TradeExit) error {
	if entry.ID == "" || x.EntryID != entry.ID {
		return fmt.Errorf("exit is not linked to a trade entry")
	}
	if !x.Quantity.IsPositive() {
		return fmt.Errorf("exit quantity must be positive, got %s", x.Quantity)
	}
	if x.Date.Before(entry.Date) {
		return fmt.Errorf("exit date %s is before entry date %s", x.Date, entry.Date)
	}
	filled := decimal.Zero
	for _, other := range entry.Exits {
		if other.ID == x.ID {
			continue
		}
		filled = filled.Add(other.Quantity)
	}
	remaining := entry.Quantity.Sub(filled)
	if x.Quantity.GreaterThan(remaining) {
		return fmt.Errorf("exit quantity %s exceeds remaining entry quantity %s", x.Quantity, remaining)
	}
	return nil
}
