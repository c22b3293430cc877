package folio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// Aggregator derives the per-user daily PortfolioPerformance rows by summing
// every account's balance snapshot converted into the user's preferred
// currency. Accounts whose balance history does not reach the requested day
// are caught up first.
//
// Callers must hold the user's lock across a recompute; see Service.
type Aggregator struct {
	store        Store
	fx           *Converter
	recalc       *Recalculator
	baseCurrency string // used when the user has no stored preference
	log          zerolog.Logger

	// lockAccount serializes the lazy catch-up against other rebuilds of
	// the same account. The Service injects its per-account mutexes here;
	// a standalone aggregator runs unsynchronized.
	lockAccount func(accountID string) (unlock func())
}

// NewAggregator returns an aggregator over the given store. baseCurrency is
// the target currency for users without a stored preference.
func NewAggregator(store Store, fx *Converter, recalc *Recalculator, baseCurrency string, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:        store,
		fx:           fx,
		recalc:       recalc,
		baseCurrency: baseCurrency,
		log:          log,
		lockAccount:  func(string) func() { return func() {} },
	}
}

// targetCurrency resolves the user's aggregation currency.
func (g *Aggregator) targetCurrency(userID string) (string, error) {
	pref, err := g.store.Preference(userID)
	if errors.Is(err, ErrNotFound) {
		return g.baseCurrency, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading preference for user %s: %w", userID, err)
	}
	if pref.Currency == "" {
		return g.baseCurrency, nil
	}
	return pref.Currency, nil
}

// RecomputeDay rebuilds the user's portfolio row for one day. Stale accounts
// are recomputed first, then every account snapshot of that day is converted
// and summed. The result replaces any existing row for (user, day).
func (g *Aggregator) RecomputeDay(ctx context.Context, userID string, on date.Date) (Warnings, error) {
	accounts, err := g.store.AccountsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("loading accounts for user %s: %w", userID, err)
	}
	currencies := make(map[string]string, len(accounts))
	var warns Warnings
	for _, a := range accounts {
		currencies[a.ID] = a.Currency
		latest, ok, err := g.store.LatestBalanceDate(a.ID)
		if err != nil {
			return warns, fmt.Errorf("checking balance history of account %s: %w", a.ID, err)
		}
		if !ok || latest.Before(on) {
			unlock := g.lockAccount(a.ID)
			w, err := g.recalc.Recompute(ctx, a.ID, nil)
			unlock()
			warns.Merge(w)
			if err != nil {
				return warns, err
			}
		}
	}

	target, err := g.targetCurrency(userID)
	if err != nil {
		return warns, err
	}

	perf := PortfolioPerformance{UserID: userID, Date: on}
	balances, err := g.store.BalancesByUserOn(userID, on)
	if err != nil {
		return warns, fmt.Errorf("loading balances for user %s on %s: %w", userID, on, err)
	}
	for _, b := range balances {
		factor, w, err := g.fx.Factor(currencies[b.AccountID], target, on)
		warns.Merge(w)
		if err != nil {
			return warns, err
		}
		perf.Principal = perf.Principal.Add(b.Principal.Mul(factor))
		perf.Balance = perf.Balance.Add(b.Balance.Mul(factor))
		perf.Float = perf.Float.Add(b.Float.Mul(factor))
		perf.Fee = perf.Fee.Add(b.Fee.Mul(factor))
		perf.Tax = perf.Tax.Add(b.Tax.Mul(factor))
	}

	flow, w, err := g.netFlow(userID, on, currencies, target)
	warns.Merge(w)
	if err != nil {
		return warns, err
	}
	perf.Transaction = flow

	if err := g.store.SavePerformance(perf); err != nil {
		return warns, fmt.Errorf("saving performance for user %s on %s: %w", userID, on, err)
	}
	return warns, nil
}

// netFlow sums the day's converted external cash movement across all of the
// user's accounts. This is flow rather than stock: the analytics use it to
// tell deposits and withdrawals apart from investment performance.
func (g *Aggregator) netFlow(userID string, on date.Date, currencies map[string]string, target string) (decimal.Decimal, Warnings, error) {
	txs, err := g.store.TransactionsByUserOn(userID, on)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("loading transactions for user %s on %s: %w", userID, on, err)
	}
	var warns Warnings
	total := decimal.Zero
	for _, tx := range txs {
		cur, ok := currencies[tx.AccountID]
		if !ok {
			// Transaction on an account outside the snapshot set; use its own currency.
			cur = tx.Currency
		}
		factor, w, err := g.fx.Factor(cur, target, on)
		warns.Merge(w)
		if err != nil {
			return decimal.Zero, warns, err
		}
		total = total.Add(tx.NetAmount().Mul(factor))
	}
	return total, warns, nil
}

// RecomputeRange rebuilds every portfolio row from 'from' through today.
// Required after a preference currency change, since every historical day's
// conversion factor changes.
func (g *Aggregator) RecomputeRange(ctx context.Context, userID string, from date.Date) (Warnings, error) {
	var warns Warnings
	seen := make(map[string]bool)
	for day := range date.NewRange(from, date.Today()).Days() {
		if err := ctx.Err(); err != nil {
			return warns, err
		}
		dayWarns, err := g.RecomputeDay(ctx, userID, day)
		for _, w := range dayWarns {
			key := string(w.Kind) + "|" + w.Subject
			if !seen[key] {
				seen[key] = true
				warns = append(warns, w)
			}
		}
		if err != nil {
			return warns, err
		}
	}
	return warns, nil
}
