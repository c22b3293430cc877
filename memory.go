package folio

import (
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// MemoryStore is an in-memory Store. It backs tests and small tools; the
// sqlite subpackage is the durable implementation.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	prefs        map[string]UserPreference
	securities   map[string]Security
	prices       map[string]*date.History[SecurityPrice]
	transactions map[string]Transaction
	entries      map[string]TradeEntry
	exits        map[string]TradeExit
	balances     map[string]*date.History[AccountBalance]
	performance  map[string]*date.History[PortfolioPerformance]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]Account),
		prefs:        make(map[string]UserPreference),
		securities:   make(map[string]Security),
		prices:       make(map[string]*date.History[SecurityPrice]),
		transactions: make(map[string]Transaction),
		entries:      make(map[string]TradeEntry),
		exits:        make(map[string]TradeExit),
		balances:     make(map[string]*date.History[AccountBalance]),
		performance:  make(map[string]*date.History[PortfolioPerformance]),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Account(id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) AccountsByUser(userID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Account) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) SaveAccount(a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) Preference(userID string) (UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return UserPreference{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SavePreference(p UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
	return nil
}

func (s *MemoryStore) Security(id string) (Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.securities[id]
	if !ok {
		return Security{}, ErrNotFound
	}
	return sec, nil
}

func (s *MemoryStore) SecurityByCode(code string) (Security, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sec := range s.securities {
		if sec.Code == code {
			return sec, true, nil
		}
	}
	return Security{}, false, nil
}

func (s *MemoryStore) SaveSecurity(sec Security) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.securities[sec.ID] = sec
	return nil
}

func (s *MemoryStore) Price(securityID string, on date.Date) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.prices[securityID]
	if !ok {
		return decimal.Zero, false, nil
	}
	p, ok := h.Get(on)
	if !ok || !p.Close.IsPositive() {
		return decimal.Zero, false, nil
	}
	return p.Close, true, nil
}

func (s *MemoryStore) PriceOnOrBefore(securityID string, on date.Date) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.prices[securityID]
	if !ok {
		return decimal.Zero, false, nil
	}
	// Zero and negative closes are gaps, so walk the series keeping the last
	// usable quote instead of trusting a single on-or-before lookup.
	best := decimal.Zero
	found := false
	for day, p := range h.Values() {
		if day.After(on) {
			break
		}
		if p.Close.IsPositive() {
			best, found = p.Close, true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) SavePrice(p SecurityPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.prices[p.SecurityID]
	if !ok {
		h = new(date.History[SecurityPrice])
		s.prices[p.SecurityID] = h
	}
	h.Append(p.Date, p)
	return nil
}

func (s *MemoryStore) Transaction(id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) SaveTransaction(t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = t
	return nil
}

func (s *MemoryStore) DeleteTransaction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *MemoryStore) TransactionsByAccountFrom(accountID string, from date.Date) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID && !t.Date.Before(from) {
			out = append(out, t)
		}
	}
	sortByDate(out, func(t Transaction) date.Date { return t.Date })
	return out, nil
}

func (s *MemoryStore) TransactionsByUserOn(userID string, on date.Date) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && t.Date == on {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) FirstTransactionDate(accountID string) (date.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first date.Date
	found := false
	for _, t := range s.transactions {
		if t.AccountID != accountID {
			continue
		}
		if !found || t.Date.Before(first) {
			first, found = t.Date, true
		}
	}
	return first, found, nil
}

func (s *MemoryStore) Entry(id string) (TradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return TradeEntry{}, ErrNotFound
	}
	e.Exits = s.exitsOf(id)
	return e, nil
}

func (s *MemoryStore) SaveEntry(e TradeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Exits = nil // exits are stored separately
	s.entries[e.ID] = e
	return nil
}

func (s *MemoryStore) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	for xid, x := range s.exits {
		if x.EntryID == id {
			delete(s.exits, xid)
		}
	}
	return nil
}

func (s *MemoryStore) EntriesByAccount(accountID string) ([]TradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeEntry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			e.Exits = s.exitsOf(e.ID)
			out = append(out, e)
		}
	}
	sortByDate(out, func(e TradeEntry) date.Date { return e.Date })
	return out, nil
}

func (s *MemoryStore) EntriesBySecurity(securityID string) ([]TradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeEntry
	for _, e := range s.entries {
		if e.SecurityID == securityID {
			e.Exits = s.exitsOf(e.ID)
			out = append(out, e)
		}
	}
	sortByDate(out, func(e TradeEntry) date.Date { return e.Date })
	return out, nil
}

// exitsOf collects the exits of an entry sorted by date. Callers hold the lock.
func (s *MemoryStore) exitsOf(entryID string) []TradeExit {
	var out []TradeExit
	for _, x := range s.exits {
		if x.EntryID == entryID {
			out = append(out, x)
		}
	}
	sortByDate(out, func(x TradeExit) date.Date { return x.Date })
	return out
}

func (s *MemoryStore) Exit(id string) (TradeExit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	x, ok := s.exits[id]
	if !ok {
		return TradeExit{}, ErrNotFound
	}
	return x, nil
}

func (s *MemoryStore) SaveExit(x TradeExit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exits[x.ID] = x
	return nil
}

func (s *MemoryStore) DeleteExit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exits[id]; !ok {
		return ErrNotFound
	}
	delete(s.exits, id)
	return nil
}

func (s *MemoryStore) LatestBalanceDate(accountID string) (date.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.balances[accountID]
	if !ok || h.Len() == 0 {
		return date.Date{}, false, nil
	}
	day, _ := h.Latest()
	return day, true, nil
}

func (s *MemoryStore) BalanceBefore(accountID string, on date.Date) (AccountBalance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.balances[accountID]
	if !ok {
		return AccountBalance{}, false, nil
	}
	b, found := h.AsOf(on.Add(-1))
	return b, found, nil
}

func (s *MemoryStore) DeleteBalancesFrom(accountID string, from date.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.balances[accountID]
	if !ok {
		return nil
	}
	var doomed []date.Date
	for day := range h.Values() {
		if !day.Before(from) {
			doomed = append(doomed, day)
		}
	}
	for _, day := range doomed {
		h.Delete(day)
	}
	return nil
}

func (s *MemoryStore) SaveBalance(b AccountBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.balances[b.AccountID]
	if !ok {
		h = new(date.History[AccountBalance])
		s.balances[b.AccountID] = h
	}
	h.Append(b.Date, b)
	return nil
}

func (s *MemoryStore) BalancesByUserOn(userID string, on date.Date) ([]AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AccountBalance
	for id, a := range s.accounts {
		if a.UserID != userID {
			continue
		}
		if h, ok := s.balances[id]; ok {
			if b, found := h.Get(on); found {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) BalanceSeries(accountID string, r date.Range) ([]AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AccountBalance
	if h, ok := s.balances[accountID]; ok {
		for day, b := range h.Values() {
			if r.Contains(day) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) SavePerformance(p PortfolioPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.performance[p.UserID]
	if !ok {
		h = new(date.History[PortfolioPerformance])
		s.performance[p.UserID] = h
	}
	h.Append(p.Date, p)
	return nil
}

func (s *MemoryStore) PerformanceSeries(userID string, r date.Range) ([]PortfolioPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PortfolioPerformance
	if h, ok := s.performance[userID]; ok {
		for day, p := range h.Values() {
			if r.Contains(day) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) EarliestPerformanceDate(userID string) (date.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.performance[userID]
	if !ok || h.Len() == 0 {
		return date.Date{}, false, nil
	}
	for day := range h.Values() {
		return day, true, nil
	}
	return date.Date{}, false, nil
}

func sortByDate[T any](xs []T, day func(T) date.Date) {
	slices.SortFunc(xs, func(a, b T) int {
		da, db := day(a), day(b)
		switch {
		case da.Before(db):
			return -1
		case da.After(db):
			return 1
		default:
			return 0
		}
	})
}
