package folio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// Recalculator re-derives an account's daily balance series. It assumes the
// events it reads were validated at write time; in particular it does not
// re-check exit quantities against entry positions.
//
// Callers must hold the account's lock for the duration of a Recompute: the
// delete-then-rebuild is not safe against a concurrent rebuild of the same
// account. Recomputing different accounts concurrently is fine.
type Recalculator struct {
	store    Store
	holdings *Holdings
	log      zerolog.Logger
}

// NewRecalculator returns a recalculator over the given store.
func NewRecalculator(store Store, log zerolog.Logger) *Recalculator {
	return &Recalculator{
		store:    store,
		holdings: NewHoldings(store, log),
		log:      log,
	}
}

// dayDelta accumulates the effect of one day's events on the running totals.
type dayDelta struct {
	balance   decimal.Decimal
	fee       decimal.Decimal
	tax       decimal.Decimal
	principal decimal.Decimal
}

// Recompute rebuilds the account's AccountBalance rows from 'from' onward.
//
// When 'from' is nil the walk resumes from the account's latest balance row,
// or today if the account has no history yet. Existing rows from the start
// date on are replaced; rows before it are untouched. The walk always
// reaches at least today, so quiet days are forward-filled with the running
// totals and that day's floating equity.
//
// Recompute is idempotent: re-running it with unchanged inputs rewrites the
// same rows.
func (r *Recalculator) Recompute(ctx context.Context, accountID string, from *date.Date) (Warnings, error) {
	today := date.Today()

	entries, err := r.store.EntriesByAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("loading entries for account %s: %w", accountID, err)
	}

	start, err := r.resolveStart(accountID, from, today, entries)
	if err != nil {
		return nil, err
	}

	// Seed the running totals from the last row before the start date.
	balance, fee, tax, principal := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	if seed, ok, err := r.store.BalanceBefore(accountID, start); err != nil {
		return nil, fmt.Errorf("seeding balance for account %s: %w", accountID, err)
	} else if ok {
		balance, fee, tax, principal = seed.Balance, seed.Fee, seed.Tax, seed.Principal
	}

	// Recomputation is authoritative for everything from the start date on.
	if err := r.store.DeleteBalancesFrom(accountID, start); err != nil {
		return nil, fmt.Errorf("clearing balances for account %s: %w", accountID, err)
	}

	deltas, last, err := r.gather(accountID, start, entries)
	if err != nil {
		return nil, err
	}
	last = date.Max(last, today)

	r.log.Debug().Str("account", accountID).
		Stringer("from", start).Stringer("to", last).
		Msg("recomputing account balances")

	var warns Warnings
	seen := make(map[string]bool) // dedupe warnings by kind+subject over the walk
	for day := range date.NewRange(start, last).Days() {
		if err := ctx.Err(); err != nil {
			return warns, err
		}
		if d, ok := deltas[day]; ok {
			balance = balance.Add(d.balance)
			fee = fee.Add(d.fee)
			tax = tax.Add(d.tax)
			principal = principal.Add(d.principal)
		}
		float, dayWarns, err := r.holdings.value(entries, day)
		if err != nil {
			return warns, err
		}
		for _, w := range dayWarns {
			key := string(w.Kind) + "|" + w.Subject
			if !seen[key] {
				seen[key] = true
				warns = append(warns, w)
			}
		}
		err = r.store.SaveBalance(AccountBalance{
			AccountID: accountID,
			Date:      day,
			Balance:   balance,
			Fee:       fee,
			Tax:       tax,
			Principal: principal,
			Float:     float,
		})
		if err != nil {
			return warns, fmt.Errorf("saving balance for account %s on %s: %w", accountID, day, err)
		}
	}
	return warns, nil
}

// resolveStart applies the resume rule for a nil start date: the latest
// balance row, or for an account with no history yet, the earliest recorded
// event. An account with neither gets a single row for today.
func (r *Recalculator) resolveStart(accountID string, from *date.Date, today date.Date, entries []TradeEntry) (date.Date, error) {
	if from != nil {
		return *from, nil
	}
	latest, ok, err := r.store.LatestBalanceDate(accountID)
	if err != nil {
		return date.Date{}, fmt.Errorf("resolving start date for account %s: %w", accountID, err)
	}
	if ok {
		return latest, nil
	}
	start := today
	first, ok, err := r.store.FirstTransactionDate(accountID)
	if err != nil {
		return date.Date{}, fmt.Errorf("resolving start date for account %s: %w", accountID, err)
	}
	if ok {
		start = date.Min(start, first)
	}
	for _, e := range entries {
		start = date.Min(start, e.Date)
	}
	return start, nil
}

// gather folds every transaction, entry and exit dated on or after 'start'
// into per-day deltas, and reports the latest event date seen.
func (r *Recalculator) gather(accountID string, start date.Date, entries []TradeEntry) (map[date.Date]*dayDelta, date.Date, error) {
	deltas := make(map[date.Date]*dayDelta)
	last := start
	at := func(on date.Date) *dayDelta {
		d, ok := deltas[on]
		if !ok {
			d = &dayDelta{}
			deltas[on] = d
		}
		if on.After(last) {
			last = on
		}
		return d
	}

	txs, err := r.store.TransactionsByAccountFrom(accountID, start)
	if err != nil {
		return nil, date.Date{}, fmt.Errorf("loading transactions for account %s: %w", accountID, err)
	}
	for _, tx := range txs {
		d := at(tx.Date)
		d.balance = d.balance.Add(tx.NetAmount())
		d.fee = d.fee.Add(tx.Fee)
		d.tax = d.tax.Add(tx.Tax)
		if tx.AffectsPrincipal() {
			d.principal = d.principal.Add(tx.NetAmount())
		}
	}

	for _, e := range entries {
		if !e.Date.Before(start) {
			d := at(e.Date)
			d.balance = d.balance.Sub(e.NetAmount())
			d.fee = d.fee.Add(e.Fee)
			d.tax = d.tax.Add(e.Tax)
		}
		// Exits belong to the entry but are folded on their own dates.
		for _, x := range e.Exits {
			if x.Date.Before(start) {
				continue
			}
			d := at(x.Date)
			d.balance = d.balance.Add(x.NetAmount())
			d.fee = d.fee.Add(x.Fee)
			d.tax = d.tax.Add(x.Tax)
		}
	}
	return deltas, last, nil
}
