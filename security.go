package folio

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// Security is a priceable asset owned by a user: a stock, an ETF, or a
// synthetic currency pair used by the FX converter.
type Security struct {
	ID       string
	UserID   string
	Code     string // ticker, or BASEQUOTE for currency pairs
	Exchange string
	Name     string
	Source   string // identifier of the external price feed
}

var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// PairCode builds the security code of a synthetic currency pair after
// validating both legs. A pair priced at p means 1 unit of base is worth
// p units of quote.
func PairCode(base, quote string) (string, error) {
	if !currencyCodeRegex.MatchString(base) {
		return "", fmt.Errorf("invalid base currency format: must be 3 uppercase letters, got %q", base)
	}
	if !currencyCodeRegex.MatchString(quote) {
		return "", fmt.Errorf("invalid quote currency format: must be 3 uppercase letters, got %q", quote)
	}
	return base + quote, nil
}

// SecurityPrice is one daily OHLC quote for a security, unique per
// (security, date). Close is the value used for all valuations.
type SecurityPrice struct {
	SecurityID    string
	Date          date.Date
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Close         decimal.Decimal
	AdjustedClose decimal.Decimal
	Volume        int64
}
