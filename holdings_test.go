package folio

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/date"
)

func TestHoldingsPriceFallbackChain(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveSecurity(Security{ID: "sec1", UserID: "u1", Code: "AAPL"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveEntry(TradeEntry{
		ID: "e1", AccountID: "a1", SecurityID: "sec1",
		Quantity: d("10"), Price: d("50"),
		Date: date.MustParse("2024-01-10"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SavePrice(SecurityPrice{SecurityID: "sec1", Date: date.MustParse("2024-01-15"), Close: d("60")}); err != nil {
		t.Fatal(err)
	}

	h := NewHoldings(store, zerolog.Nop())

	tests := []struct {
		name string
		on   string
		want string
	}{
		{"exact quote", "2024-01-15", "600"},
		{"latest quote on or before", "2024-01-20", "600"},
		{"entry price before any quote", "2024-01-12", "500"},
		{"nothing held before entry", "2024-01-05", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warns, err := h.Value("a1", date.MustParse(tt.on))
			if err != nil {
				t.Fatalf("Value() error: %v", err)
			}
			if len(warns) != 0 {
				t.Errorf("Value() warnings = %v, want none", warns)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Value() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHoldingsMissingPriceWarns(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveSecurity(Security{ID: "sec1", UserID: "u1", Code: "MYST"}); err != nil {
		t.Fatal(err)
	}
	// Entry recorded with a zero price and no quotes: nothing to value with.
	if err := store.SaveEntry(TradeEntry{
		ID: "e1", AccountID: "a1", SecurityID: "sec1",
		Quantity: d("5"), Price: d("0"),
		Date: date.MustParse("2024-01-10"),
	}); err != nil {
		t.Fatal(err)
	}

	h := NewHoldings(store, zerolog.Nop())
	got, warns, err := h.Value("a1", date.MustParse("2024-02-01"))
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Value() = %s, want 0 for an unpriceable holding", got)
	}
	if len(warns) != 1 || warns[0].Kind != WarnMissingPrice || warns[0].Subject != "MYST" {
		t.Errorf("Value() warnings = %v, want one missing-price warning for MYST", warns)
	}
}

func TestHoldingsSumsAcrossEntries(t *testing.T) {
	store := NewMemoryStore()
	for _, id := range []string{"sec1", "sec2"} {
		if err := store.SaveSecurity(Security{ID: id, UserID: "u1", Code: id}); err != nil {
			t.Fatal(err)
		}
	}
	entries := []TradeEntry{
		{ID: "e1", AccountID: "a1", SecurityID: "sec1", Quantity: d("10"), Price: d("50"), Date: date.MustParse("2024-01-10")},
		{ID: "e2", AccountID: "a1", SecurityID: "sec1", Quantity: d("5"), Price: d("55"), Date: date.MustParse("2024-01-20")},
		{ID: "e3", AccountID: "a1", SecurityID: "sec2", Quantity: d("2"), Price: d("200"), Date: date.MustParse("2024-01-15")},
	}
	for _, e := range entries {
		if err := store.SaveEntry(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SavePrice(SecurityPrice{SecurityID: "sec1", Date: date.MustParse("2024-02-01"), Close: d("60")}); err != nil {
		t.Fatal(err)
	}

	h := NewHoldings(store, zerolog.Nop())
	got, warns, err := h.Value("a1", date.MustParse("2024-02-01"))
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("Value() warnings = %v, want none", warns)
	}
	// 15 shares of sec1 at the 60 quote plus 2 of sec2 at its entry price.
	if !got.Equal(d("1300")) {
		t.Errorf("Value() = %s, want 1300", got)
	}
}
