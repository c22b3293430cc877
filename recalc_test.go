package folio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/date"
)

// seedBrokerAccount records a deposit, a buy, a partial sell and one quote
// on an account whose history started ten days ago.
func seedBrokerAccount(t *testing.T, store *MemoryStore) (accountID string, start date.Date) {
	t.Helper()
	start = date.Today().Add(-10)

	if err := store.SaveAccount(Account{ID: "a1", UserID: "u1", Type: Broker, Currency: "USD", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSecurity(Security{ID: "sec1", UserID: "u1", Code: "AAPL"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTransaction(Transaction{
		ID: "t1", AccountID: "a1", UserID: "u1", Type: TxDeposit,
		Amount: d("1000"), Date: start,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveEntry(TradeEntry{
		ID: "e1", AccountID: "a1", SecurityID: "sec1",
		Quantity: d("10"), Price: d("50"), Fee: d("5"),
		Date: start.Add(2),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveExit(TradeExit{
		ID: "x1", EntryID: "e1",
		Quantity: d("4"), Price: d("75"), Fee: d("0.5"),
		Date: start.Add(5),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SavePrice(SecurityPrice{SecurityID: "sec1", Date: start.Add(3), Close: d("60")}); err != nil {
		t.Fatal(err)
	}
	return "a1", start
}

func balanceOn(t *testing.T, store *MemoryStore, accountID string, on date.Date) AccountBalance {
	t.Helper()
	series, err := store.BalanceSeries(accountID, date.NewRange(on, on))
	if err != nil {
		t.Fatalf("BalanceSeries() error: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("no balance row for %s on %s", accountID, on)
	}
	return series[0]
}

func TestRecomputeDerivesDailySeries(t *testing.T) {
	store := NewMemoryStore()
	accountID, start := seedBrokerAccount(t, store)
	r := NewRecalculator(store, zerolog.Nop())

	warns, err := r.Recompute(context.Background(), accountID, &start)
	if err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("Recompute() warnings = %v, want none", warns)
	}

	// The series is contiguous from the first event through today.
	series, err := store.BalanceSeries(accountID, date.NewRange(start, date.Today()))
	if err != nil {
		t.Fatalf("BalanceSeries() error: %v", err)
	}
	if len(series) != 11 {
		t.Fatalf("BalanceSeries() = %d rows, want 11", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i].Date != series[i-1].Date.Add(1) {
			t.Fatalf("series gap between %s and %s", series[i-1].Date, series[i].Date)
		}
	}

	tests := []struct {
		day                                   date.Date
		balance, fee, tax, principal, floatEq string
	}{
		{start, "1000", "0", "0", "1000", "0"},
		{start.Add(1), "1000", "0", "0", "1000", "0"},      // quiet day forward-filled
		{start.Add(2), "495", "5", "0", "1000", "500"},     // buy; valued at entry price
		{start.Add(3), "495", "5", "0", "1000", "600"},     // quote arrives
		{start.Add(5), "794.5", "5.5", "0", "1000", "360"}, // partial sell
		{date.Today(), "794.5", "5.5", "0", "1000", "360"},
	}
	for _, tt := range tests {
		b := balanceOn(t, store, accountID, tt.day)
		if !b.Balance.Equal(d(tt.balance)) || !b.Fee.Equal(d(tt.fee)) || !b.Tax.Equal(d(tt.tax)) ||
			!b.Principal.Equal(d(tt.principal)) || !b.Float.Equal(d(tt.floatEq)) {
			t.Errorf("balance on %s = {bal %s fee %s tax %s principal %s float %s}, want {%s %s %s %s %s}",
				tt.day, b.Balance, b.Fee, b.Tax, b.Principal, b.Float,
				tt.balance, tt.fee, tt.tax, tt.principal, tt.floatEq)
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	accountID, start := seedBrokerAccount(t, store)
	r := NewRecalculator(store, zerolog.Nop())
	ctx := context.Background()

	if _, err := r.Recompute(ctx, accountID, &start); err != nil {
		t.Fatalf("first Recompute() error: %v", err)
	}
	first, err := store.BalanceSeries(accountID, date.NewRange(start, date.Today()))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Recompute(ctx, accountID, &start); err != nil {
		t.Fatalf("second Recompute() error: %v", err)
	}
	second, err := store.BalanceSeries(accountID, date.NewRange(start, date.Today()))
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("rerun changed series length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Date != b.Date || !a.Balance.Equal(b.Balance) || !a.Float.Equal(b.Float) ||
			!a.Fee.Equal(b.Fee) || !a.Tax.Equal(b.Tax) || !a.Principal.Equal(b.Principal) {
			t.Errorf("rerun changed row for %s: %+v vs %+v", a.Date, a, b)
		}
	}
}

func TestRecomputeLeavesPrefixUntouched(t *testing.T) {
	store := NewMemoryStore()
	accountID, start := seedBrokerAccount(t, store)
	r := NewRecalculator(store, zerolog.Nop())
	ctx := context.Background()

	if _, err := r.Recompute(ctx, accountID, &start); err != nil {
		t.Fatal(err)
	}
	before, err := store.BalanceSeries(accountID, date.NewRange(start, start.Add(2)))
	if err != nil {
		t.Fatal(err)
	}

	// A retroactive dividend three days in only changes rows from its date.
	editDay := start.Add(3)
	if err := store.SaveTransaction(Transaction{
		ID: "t2", AccountID: accountID, UserID: "u1", Type: TxDividend,
		Amount: d("12"), Date: editDay,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Recompute(ctx, accountID, &editDay); err != nil {
		t.Fatal(err)
	}

	after, err := store.BalanceSeries(accountID, date.NewRange(start, start.Add(2)))
	if err != nil {
		t.Fatal(err)
	}
	for i := range before {
		if !before[i].Balance.Equal(after[i].Balance) || !before[i].Float.Equal(after[i].Float) {
			t.Errorf("prefix row %s changed by a later-dated edit", before[i].Date)
		}
	}
	got := balanceOn(t, store, accountID, editDay)
	if !got.Balance.Equal(d("507")) { // 495 + 12
		t.Errorf("balance on edit day = %s, want 507", got.Balance)
	}
}

func TestRecomputeResumesFromEarliestEvent(t *testing.T) {
	store := NewMemoryStore()
	accountID, start := seedBrokerAccount(t, store)
	r := NewRecalculator(store, zerolog.Nop())

	// No balance rows yet: a nil start walks from the first event.
	if _, err := r.Recompute(context.Background(), accountID, nil); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	b := balanceOn(t, store, accountID, start)
	if !b.Balance.Equal(d("1000")) {
		t.Errorf("first row balance = %s, want 1000", b.Balance)
	}
}

func TestRecomputeHonorsContext(t *testing.T) {
	store := NewMemoryStore()
	accountID, start := seedBrokerAccount(t, store)
	r := NewRecalculator(store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Recompute(ctx, accountID, &start); err == nil {
		t.Fatal("Recompute() with cancelled context returned nil error")
	}
}
