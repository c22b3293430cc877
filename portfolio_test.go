package folio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// seedTwoCurrencyUser sets up one USD and one EUR account, each funded five
// days ago, and a EURUSD rate of 1.10.
func seedTwoCurrencyUser(t *testing.T, store *MemoryStore) (start date.Date) {
	t.Helper()
	start = date.Today().Add(-5)

	accounts := []Account{
		{ID: "usd", UserID: "u1", Type: Deposit, Currency: "USD", Active: true},
		{ID: "eur", UserID: "u1", Type: Deposit, Currency: "EUR", Active: true},
	}
	for _, a := range accounts {
		if err := store.SaveAccount(a); err != nil {
			t.Fatal(err)
		}
	}
	savePair(t, store, "EUR", "USD", start.Add(-1).String(), "1.10")

	deposits := []Transaction{
		{ID: "t1", AccountID: "usd", UserID: "u1", Type: TxDeposit, Amount: d("1000"), Date: start},
		{ID: "t2", AccountID: "eur", UserID: "u1", Type: TxDeposit, Amount: d("500"), Date: start},
	}
	for _, tx := range deposits {
		if err := store.SaveTransaction(tx); err != nil {
			t.Fatal(err)
		}
	}
	return start
}

func newTestAggregator(store *MemoryStore) *Aggregator {
	log := zerolog.Nop()
	fx := NewConverter(store, log)
	return NewAggregator(store, fx, NewRecalculator(store, log), "USD", log)
}

func performanceOn(t *testing.T, store *MemoryStore, userID string, on date.Date) PortfolioPerformance {
	t.Helper()
	series, err := store.PerformanceSeries(userID, date.NewRange(on, on))
	if err != nil {
		t.Fatalf("PerformanceSeries() error: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("no performance row for %s on %s", userID, on)
	}
	return series[0]
}

func TestAggregatorConvertsAndSums(t *testing.T) {
	store := NewMemoryStore()
	start := seedTwoCurrencyUser(t, store)
	g := newTestAggregator(store)

	warns, err := g.RecomputeRange(context.Background(), "u1", start)
	if err != nil {
		t.Fatalf("RecomputeRange() error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("RecomputeRange() warnings = %v, want none", warns)
	}

	// 1000 USD plus 500 EUR at 1.10.
	want := d("1550")
	day1 := performanceOn(t, store, "u1", start)
	if !day1.Principal.Equal(want) || !day1.Balance.Equal(want) {
		t.Errorf("funding day principal/balance = %s/%s, want %s", day1.Principal, day1.Balance, want)
	}
	if !day1.Transaction.Equal(want) {
		t.Errorf("funding day flow = %s, want %s", day1.Transaction, want)
	}

	today := performanceOn(t, store, "u1", date.Today())
	if !today.Principal.Equal(want) {
		t.Errorf("today principal = %s, want %s", today.Principal, want)
	}
	if !today.Transaction.IsZero() {
		t.Errorf("today flow = %s, want 0", today.Transaction)
	}
}

func TestAggregatorRebuildsOnCurrencyChange(t *testing.T) {
	store := NewMemoryStore()
	start := seedTwoCurrencyUser(t, store)
	g := newTestAggregator(store)
	ctx := context.Background()

	if _, err := g.RecomputeRange(ctx, "u1", start); err != nil {
		t.Fatal(err)
	}

	if err := store.SavePreference(UserPreference{UserID: "u1", Currency: "EUR"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.RecomputeRange(ctx, "u1", start); err != nil {
		t.Fatalf("RecomputeRange() after currency change error: %v", err)
	}

	// 1000 USD inverted through the EURUSD pair, plus 500 EUR as-is.
	want := d("1000").Mul(decimal.NewFromInt(1).Div(d("1.1"))).Add(d("500"))
	got := performanceOn(t, store, "u1", start)
	if !got.Principal.Equal(want) {
		t.Errorf("principal in EUR = %s, want %s", got.Principal, want)
	}
}

func TestAggregatorCatchUpHoldsAccountLock(t *testing.T) {
	store := NewMemoryStore()
	start := seedTwoCurrencyUser(t, store)
	g := newTestAggregator(store)

	var locked, unlocked []string
	g.lockAccount = func(accountID string) func() {
		locked = append(locked, accountID)
		return func() { unlocked = append(unlocked, accountID) }
	}

	// Both accounts have events but no balance rows, so both need catch-up.
	if _, err := g.RecomputeDay(context.Background(), "u1", start); err != nil {
		t.Fatalf("RecomputeDay() error: %v", err)
	}
	if len(locked) != 2 || len(unlocked) != 2 {
		t.Fatalf("catch-up locked %v and unlocked %v, want both accounts once", locked, unlocked)
	}
	for i := range locked {
		if locked[i] != unlocked[i] {
			t.Errorf("lock/unlock pairing mismatch: %v vs %v", locked, unlocked)
		}
	}
}

func TestAggregatorWarnsOnMissingRate(t *testing.T) {
	store := NewMemoryStore()
	start := date.Today().Add(-1)
	if err := store.SaveAccount(Account{ID: "chf", UserID: "u1", Type: Deposit, Currency: "CHF", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTransaction(Transaction{
		ID: "t1", AccountID: "chf", UserID: "u1", Type: TxDeposit, Amount: d("100"), Date: start,
	}); err != nil {
		t.Fatal(err)
	}
	g := newTestAggregator(store)

	warns, err := g.RecomputeRange(context.Background(), "u1", start)
	if err != nil {
		t.Fatalf("RecomputeRange() error: %v", err)
	}
	if len(warns) != 1 || warns[0].Kind != WarnMissingRate || warns[0].Subject != "CHFUSD" {
		t.Fatalf("warnings = %v, want one missing-rate warning for CHFUSD", warns)
	}
	// Identity fallback: the CHF amount passes through 1:1.
	got := performanceOn(t, store, "u1", start)
	if !got.Balance.Equal(d("100")) {
		t.Errorf("balance with identity fallback = %s, want 100", got.Balance)
	}
}
