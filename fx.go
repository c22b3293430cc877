package folio

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

var one = decimal.NewFromInt(1)

// Converter resolves currency conversion factors from synthetic currency
// pair securities, with USD as the pivot.
//
// When no rate is resolvable the factor degrades to identity (1) with a
// WarnMissingRate warning. This misstates foreign-currency amounts as 1:1
// with the target currency; it is a deliberate, flagged approximation that
// keeps a multi-day recompute running across rate gaps.
type Converter struct {
	store Store
	rates *cache.Cache
	log   zerolog.Logger
}

// NewConverter returns a converter reading pair quotes from store. Resolved
// factors are cached per (pair, date) for a day.
func NewConverter(store Store, log zerolog.Logger) *Converter {
	return &Converter{
		store: store,
		rates: cache.New(24*time.Hour, 48*time.Hour),
		log:   log,
	}
}

// Flush drops every cached factor. Quote ingestion calls this so corrected
// or backfilled pair rates are re-resolved instead of served stale.
func (c *Converter) Flush() {
	c.rates.Flush()
}

// Factor returns the multiplicative factor converting an amount in src into
// tgt as of 'on': amount_tgt = amount_src * factor.
func (c *Converter) Factor(src, tgt string, on date.Date) (decimal.Decimal, Warnings, error) {
	if src == tgt {
		return one, nil, nil
	}
	key := fmt.Sprintf("%s%s@%s", src, tgt, on)
	if cached, found := c.rates.Get(key); found {
		return cached.(decimal.Decimal), nil, nil
	}

	factor, ok, err := c.resolve(src, tgt, on)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if !ok {
		var warns Warnings
		warns.add(WarnMissingRate, on, src+tgt, "no rate resolvable; using identity factor 1")
		c.log.Warn().Str("pair", src+tgt).Stringer("date", on).
			Msg("missing exchange rate, falling back to identity")
		// The fallback is not cached so later price ingestion is picked up.
		return one, warns, nil
	}
	c.rates.Set(key, factor, cache.DefaultExpiration)
	return factor, nil, nil
}

// resolve tries the direct pair, the inverse pair, and finally a USD pivot.
func (c *Converter) resolve(src, tgt string, on date.Date) (decimal.Decimal, bool, error) {
	if rate, ok, err := c.pairRate(src, tgt, on); err != nil || ok {
		return rate, ok, err
	}
	if rate, ok, err := c.pairRate(tgt, src, on); err != nil {
		return decimal.Zero, false, err
	} else if ok {
		return one.Div(rate), true, nil
	}
	srcUSD, srcOK, err := c.usdRate(src, on)
	if err != nil {
		return decimal.Zero, false, err
	}
	tgtUSD, tgtOK, err := c.usdRate(tgt, on)
	if err != nil {
		return decimal.Zero, false, err
	}
	if srcOK && tgtOK && tgtUSD.IsPositive() {
		return srcUSD.Div(tgtUSD), true, nil
	}
	return decimal.Zero, false, nil
}

// usdRate returns the value of 1 unit of cur in USD.
func (c *Converter) usdRate(cur string, on date.Date) (decimal.Decimal, bool, error) {
	if cur == "USD" {
		return one, true, nil
	}
	if rate, ok, err := c.pairRate(cur, "USD", on); err != nil || ok {
		return rate, ok, err
	}
	rate, ok, err := c.pairRate("USD", cur, on)
	if err != nil {
		return decimal.Zero, false, err
	}
	if ok && rate.IsPositive() {
		return one.Div(rate), true, nil
	}
	return decimal.Zero, false, nil
}

// pairRate looks up the close of the synthetic pair security BASEQUOTE on or
// before 'on'. The quote is units of quote currency per 1 unit of base.
func (c *Converter) pairRate(base, quote string, on date.Date) (decimal.Decimal, bool, error) {
	code, err := PairCode(base, quote)
	if err != nil {
		return decimal.Zero, false, nil
	}
	sec, found, err := c.store.SecurityByCode(code)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("pair security lookup %s: %w", code, err)
	}
	if !found {
		return decimal.Zero, false, nil
	}
	price, ok, err := c.store.PriceOnOrBefore(sec.ID, on)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("pair price lookup %s: %w", code, err)
	}
	if !ok || !price.IsPositive() {
		return decimal.Zero, false, nil
	}
	return price, true, nil
}
