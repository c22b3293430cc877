package folio

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// Service is the boundary the surrounding application talks to. It owns the
// write path (persist, validate, then recompute from the earliest affected
// date) and the locking discipline: one mutex per account around ledger
// rebuilds, one per user around portfolio aggregation. Operations on
// different accounts run concurrently; overlapping rebuilds of the same
// account cannot.
type Service struct {
	store  Store
	fx     *Converter
	recalc *Recalculator
	agg    *Aggregator
	log    zerolog.Logger

	mu           sync.Mutex
	accountLocks map[string]*sync.Mutex
	userLocks    map[string]*sync.Mutex
}

// NewService wires the engine over a store. baseCurrency is the aggregation
// currency for users without a stored preference.
func NewService(store Store, baseCurrency string, log zerolog.Logger) *Service {
	fx := NewConverter(store, log)
	recalc := NewRecalculator(store, log)
	s := &Service{
		store:        store,
		fx:           fx,
		recalc:       recalc,
		agg:          NewAggregator(store, fx, recalc, baseCurrency, log),
		log:          log,
		accountLocks: make(map[string]*sync.Mutex),
		userLocks:    make(map[string]*sync.Mutex),
	}
	// The aggregator's lazy catch-up rebuilds accounts too; it must contend
	// for the same per-account locks as refresh.
	s.agg.lockAccount = func(accountID string) func() {
		l := s.accountLock(accountID)
		l.Lock()
		return l.Unlock
	}
	return s
}

func (s *Service) accountLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.accountLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.accountLocks[id] = l
	}
	return l
}

func (s *Service) userLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[id] = l
	}
	return l
}

// refresh rebuilds one account's ledger from 'from' and then re-aggregates
// the owning user's portfolio from the same date through today.
func (s *Service) refresh(ctx context.Context, accountID, userID string, from date.Date) (Warnings, error) {
	var warns Warnings

	l := s.accountLock(accountID)
	l.Lock()
	w, err := s.recalc.Recompute(ctx, accountID, &from)
	l.Unlock()
	warns.Merge(w)
	if err != nil {
		return warns, err
	}

	ul := s.userLock(userID)
	ul.Lock()
	w, err = s.agg.RecomputeRange(ctx, userID, from)
	ul.Unlock()
	warns.Merge(w)
	return warns, err
}

// --- change notifications (§ boundary contract) ---

// OnTransactionChanged reacts to a created, edited or deleted transaction.
// For edits the caller passes the pre-edit date in oldDate so the rebuild
// starts at the earliest affected day; for deletes the caller passes the
// deleted transaction itself.
func (s *Service) OnTransactionChanged(ctx context.Context, tx Transaction, oldDate *date.Date) (Warnings, error) {
	from := tx.Date
	if oldDate != nil {
		from = date.Min(*oldDate, tx.Date)
	}
	return s.refresh(ctx, tx.AccountID, tx.UserID, from)
}

// OnEntryChanged reacts to a created, edited or deleted trade entry.
func (s *Service) OnEntryChanged(ctx context.Context, e TradeEntry, oldDate *date.Date) (Warnings, error) {
	account, err := s.store.Account(e.AccountID)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", e.AccountID, err)
	}
	from := e.Date
	if oldDate != nil {
		from = date.Min(*oldDate, e.Date)
	}
	return s.refresh(ctx, account.ID, account.UserID, from)
}

// OnExitChanged reacts to a created, edited or deleted trade exit.
func (s *Service) OnExitChanged(ctx context.Context, x TradeExit, oldDate *date.Date) (Warnings, error) {
	entry, err := s.store.Entry(x.EntryID)
	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", x.EntryID, err)
	}
	account, err := s.store.Account(entry.AccountID)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", entry.AccountID, err)
	}
	from := x.Date
	if oldDate != nil {
		from = date.Min(*oldDate, x.Date)
	}
	return s.refresh(ctx, account.ID, account.UserID, from)
}

// OnPriceUpdated reacts to new or corrected quotes for a security: every
// account holding it has its floating equity rebuilt from the quote date.
// Cached FX factors are dropped first, since the security may be a currency
// pair whose corrected rate must win over the cache.
func (s *Service) OnPriceUpdated(ctx context.Context, securityID string, on date.Date) (Warnings, error) {
	s.fx.Flush()
	entries, err := s.store.EntriesBySecurity(securityID)
	if err != nil {
		return nil, fmt.Errorf("loading entries for security %s: %w", securityID, err)
	}
	affected := make(map[string]bool)
	var warns Warnings
	for _, e := range entries {
		if affected[e.AccountID] {
			continue
		}
		affected[e.AccountID] = true
		account, err := s.store.Account(e.AccountID)
		if err != nil {
			return warns, fmt.Errorf("loading account %s: %w", e.AccountID, err)
		}
		w, err := s.refresh(ctx, account.ID, account.UserID, on)
		warns.Merge(w)
		if err != nil {
			return warns, err
		}
	}
	return warns, nil
}

// OnUserCurrencyChanged rebuilds the user's entire portfolio history in the
// new preference currency. Account ledgers are unaffected: they stay in
// their own currency and only the aggregation changes.
func (s *Service) OnUserCurrencyChanged(ctx context.Context, userID string) (Warnings, error) {
	earliest, ok, err := s.store.EarliestPerformanceDate(userID)
	if err != nil {
		return nil, fmt.Errorf("finding earliest portfolio date for user %s: %w", userID, err)
	}
	if !ok {
		return nil, nil
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return s.agg.RecomputeRange(ctx, userID, earliest)
}

// --- write path ---

// SaveTransaction validates and persists a transaction (assigning an ID when
// blank) and triggers recomputation from the earliest affected date.
func (s *Service) SaveTransaction(ctx context.Context, tx Transaction) (Transaction, Warnings, error) {
	if _, err := s.store.Account(tx.AccountID); err != nil {
		return tx, nil, fmt.Errorf("loading account %s: %w", tx.AccountID, err)
	}
	if tx.Currency != "" {
		if err := ValidateCurrency(tx.Currency); err != nil {
			return tx, nil, err
		}
	}
	var oldDate *date.Date
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	} else if prev, err := s.store.Transaction(tx.ID); err == nil {
		d := prev.Date
		oldDate = &d
	}
	if err := s.store.SaveTransaction(tx); err != nil {
		return tx, nil, fmt.Errorf("saving transaction: %w", err)
	}
	warns, err := s.OnTransactionChanged(ctx, tx, oldDate)
	return tx, warns, err
}

// DeleteTransaction removes a transaction and recomputes from its date.
func (s *Service) DeleteTransaction(ctx context.Context, id string) (Warnings, error) {
	tx, err := s.store.Transaction(id)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", id, err)
	}
	if err := s.store.DeleteTransaction(id); err != nil {
		return nil, fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return s.OnTransactionChanged(ctx, tx, nil)
}

// SaveEntry validates and persists a trade entry and triggers recomputation.
func (s *Service) SaveEntry(ctx context.Context, e TradeEntry) (TradeEntry, Warnings, error) {
	if _, err := s.store.Account(e.AccountID); err != nil {
		return e, nil, fmt.Errorf("loading account %s: %w", e.AccountID, err)
	}
	if !e.Quantity.IsPositive() {
		return e, nil, fmt.Errorf("entry quantity must be positive, got %s", e.Quantity)
	}
	var oldDate *date.Date
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if prev, err := s.store.Entry(e.ID); err == nil {
		d := prev.Date
		oldDate = &d
	}
	if err := s.store.SaveEntry(e); err != nil {
		return e, nil, fmt.Errorf("saving entry: %w", err)
	}
	warns, err := s.OnEntryChanged(ctx, e, oldDate)
	return e, warns, err
}

// DeleteEntry removes an entry and its exits and recomputes from its date.
func (s *Service) DeleteEntry(ctx context.Context, id string) (Warnings, error) {
	e, err := s.store.Entry(id)
	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", id, err)
	}
	if err := s.store.DeleteEntry(id); err != nil {
		return nil, fmt.Errorf("deleting entry %s: %w", id, err)
	}
	account, err := s.store.Account(e.AccountID)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", e.AccountID, err)
	}
	return s.refresh(ctx, account.ID, account.UserID, e.Date)
}

// SaveExit validates an exit against its entry's remaining quantity,
// persists it, and triggers recomputation. Over-selling is rejected here so
// the recalculator never sees it.
func (s *Service) SaveExit(ctx context.Context, x TradeExit) (TradeExit, Warnings, error) {
	entry, err := s.store.Entry(x.EntryID)
	if err != nil {
		return x, nil, fmt.Errorf("loading entry %s: %w", x.EntryID, err)
	}
	var oldDate *date.Date
	if x.ID == "" {
		x.ID = uuid.NewString()
	} else if prev, err := s.store.Exit(x.ID); err == nil {
		d := prev.Date
		oldDate = &d
	}
	if err := ValidateExit(entry, x); err != nil {
		return x, nil, err
	}
	if err := s.store.SaveExit(x); err != nil {
		return x, nil, fmt.Errorf("saving exit: %w", err)
	}
	warns, err := s.OnExitChanged(ctx, x, oldDate)
	return x, warns, err
}

// DeleteExit removes an exit and recomputes from its date.
func (s *Service) DeleteExit(ctx context.Context, id string) (Warnings, error) {
	x, err := s.store.Exit(id)
	if err != nil {
		return nil, fmt.Errorf("loading exit %s: %w", id, err)
	}
	if err := s.store.DeleteExit(id); err != nil {
		return nil, fmt.Errorf("deleting exit %s: %w", id, err)
	}
	return s.OnExitChanged(ctx, x, nil)
}

// SavePrices upserts a batch of quotes from the external price feed and
// reacts as if the earliest one changed. Rows must share one security.
func (s *Service) SavePrices(ctx context.Context, securityID string, rows []SecurityPrice) (Warnings, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	earliest := rows[0].Date
	for _, p := range rows {
		p.SecurityID = securityID
		if err := s.store.SavePrice(p); err != nil {
			return nil, fmt.Errorf("saving price for security %s on %s: %w", securityID, p.Date, err)
		}
		earliest = date.Min(earliest, p.Date)
	}
	return s.OnPriceUpdated(ctx, securityID, earliest)
}

// --- read accessors ---

// AccountBalanceSeries returns the account's derived daily snapshots within
// the range, ascending.
func (s *Service) AccountBalanceSeries(accountID string, r date.Range) ([]AccountBalance, error) {
	return s.store.BalanceSeries(accountID, r)
}

// LatestBalance returns the account's most recent snapshot up to today.
func (s *Service) LatestBalance(accountID string) (AccountBalance, bool, error) {
	return s.store.BalanceBefore(accountID, date.Today().Add(1))
}

// PortfolioSeries returns the user's derived daily aggregates within the
// range, ascending.
func (s *Service) PortfolioSeries(userID string, r date.Range) ([]PortfolioPerformance, error) {
	return s.store.PerformanceSeries(userID, r)
}

// fullSeries loads the user's whole portfolio history.
func (s *Service) fullSeries(userID string) ([]PortfolioPerformance, error) {
	earliest, ok, err := s.store.EarliestPerformanceDate(userID)
	if err != nil || !ok {
		return nil, err
	}
	return s.store.PerformanceSeries(userID, date.NewRange(earliest, date.Today()))
}

// Drawdown returns the user's maximum drawdown over their whole history, as
// a negative percentage.
func (s *Service) Drawdown(userID string) (decimal.Decimal, error) {
	series, err := s.fullSeries(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return MaxDrawdown(series), nil
}

// TWRR returns the user's time-weighted rate of return over their whole
// history, in percent.
func (s *Service) TWRR(userID string) (decimal.Decimal, error) {
	series, err := s.fullSeries(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return TimeWeightedReturn(series), nil
}
