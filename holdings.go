package folio

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// Holdings values the securities still held in an account on a given date.
//
// The price for each held security resolves through a fallback chain: the
// exact quote on the date, then the latest quote on or before it, then the
// most recent purchase price among the entries still holding it. A security
// with no resolvable price contributes zero and produces a warning.
type Holdings struct {
	store Store
	log   zerolog.Logger
}

// NewHoldings returns a calculator reading entries and prices from store.
func NewHoldings(store Store, log zerolog.Logger) *Holdings {
	return &Holdings{store: store, log: log}
}

// Value returns the mark-to-market value of everything the account still
// holds on 'on'. It returns zero when nothing is held.
func (h *Holdings) Value(accountID string, on date.Date) (decimal.Decimal, Warnings, error) {
	entries, err := h.store.EntriesByAccount(accountID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("loading entries for account %s: %w", accountID, err)
	}
	return h.value(entries, on)
}

// value is the per-day valuation over pre-loaded entries. The recalculator
// loads an account's entries once and calls this for every day of its walk.
func (h *Holdings) value(entries []TradeEntry, on date.Date) (decimal.Decimal, Warnings, error) {
	type lastBuy struct {
		day   date.Date
		price decimal.Decimal
	}
	held := make(map[string]decimal.Decimal)
	fallbacks := make(map[string]lastBuy)
	for _, e := range entries {
		remaining := e.RemainingQuantityAt(on)
		if !remaining.IsPositive() {
			continue
		}
		held[e.SecurityID] = held[e.SecurityID].Add(remaining)
		if f, ok := fallbacks[e.SecurityID]; !ok || e.Date.After(f.day) {
			fallbacks[e.SecurityID] = lastBuy{day: e.Date, price: e.Price}
		}
	}
	if len(held) == 0 {
		return decimal.Zero, nil, nil
	}

	// Deterministic iteration so repeated runs log and warn identically.
	ids := make([]string, 0, len(held))
	for id := range held {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, strings.Compare)

	var warns Warnings
	total := decimal.Zero
	for _, securityID := range ids {
		price, ok, err := h.resolvePrice(securityID, on, fallbacks[securityID].price)
		if err != nil {
			return decimal.Zero, warns, err
		}
		if !ok {
			subject := h.securityCode(securityID)
			warns.add(WarnMissingPrice, on, subject, "no usable quote on or before %s; position valued at zero", on)
			h.log.Warn().Str("security", subject).Stringer("date", on).
				Msg("missing price, holding excluded from floating equity")
			continue
		}
		total = total.Add(held[securityID].Mul(price))
	}
	return total, warns, nil
}

// resolvePrice walks the fallback chain for one security.
func (h *Holdings) resolvePrice(securityID string, on date.Date, entryPrice decimal.Decimal) (decimal.Decimal, bool, error) {
	price, ok, err := h.store.Price(securityID, on)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price lookup for %s: %w", securityID, err)
	}
	if ok {
		return price, true, nil
	}
	price, ok, err = h.store.PriceOnOrBefore(securityID, on)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price lookup for %s: %w", securityID, err)
	}
	if ok {
		return price, true, nil
	}
	if entryPrice.IsPositive() {
		return entryPrice, true, nil
	}
	return decimal.Zero, false, nil
}

// securityCode resolves a security's code for warning messages, falling back
// to the raw id when the security row is unavailable.
func (h *Holdings) securityCode(securityID string) string {
	sec, err := h.store.Security(securityID)
	if err != nil {
		return securityID
	}
	return sec.Code
}
