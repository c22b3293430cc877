package folio

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// ErrNotFound is returned by store lookups when the row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence port of the engine. The sqlite subpackage
// provides the durable implementation; MemoryStore serves tests.
//
// Uniqueness of (account, date) on balances, (user, date) on performance
// rows and (security, date) on prices is part of the contract, not an
// implementation detail: Save* on these rows replaces any existing row for
// the same key.
type Store interface {
	// Accounts and preferences.
	Account(id string) (Account, error)
	AccountsByUser(userID string) ([]Account, error)
	SaveAccount(a Account) error

	Preference(userID string) (UserPreference, error)
	SavePreference(p UserPreference) error

	// Securities and prices. Price lookups return the close quote and must
	// treat rows with close <= 0 as absent data.
	Security(id string) (Security, error)
	SecurityByCode(code string) (Security, bool, error)
	SaveSecurity(s Security) error

	Price(securityID string, on date.Date) (decimal.Decimal, bool, error)
	PriceOnOrBefore(securityID string, on date.Date) (decimal.Decimal, bool, error)
	SavePrice(p SecurityPrice) error

	// Transactions.
	Transaction(id string) (Transaction, error)
	SaveTransaction(t Transaction) error
	DeleteTransaction(id string) error
	TransactionsByAccountFrom(accountID string, from date.Date) ([]Transaction, error)
	TransactionsByUserOn(userID string, on date.Date) ([]Transaction, error)
	FirstTransactionDate(accountID string) (date.Date, bool, error)

	// Trade entries and exits. Entries are always loaded with their exits.
	Entry(id string) (TradeEntry, error)
	SaveEntry(e TradeEntry) error
	DeleteEntry(id string) error
	EntriesByAccount(accountID string) ([]TradeEntry, error)
	EntriesBySecurity(securityID string) ([]TradeEntry, error)
	Exit(id string) (TradeExit, error)
	SaveExit(x TradeExit) error
	DeleteExit(id string) error

	// Derived account balances.
	LatestBalanceDate(accountID string) (date.Date, bool, error)
	BalanceBefore(accountID string, on date.Date) (AccountBalance, bool, error)
	DeleteBalancesFrom(accountID string, from date.Date) error
	SaveBalance(b AccountBalance) error
	BalancesByUserOn(userID string, on date.Date) ([]AccountBalance, error)
	BalanceSeries(accountID string, r date.Range) ([]AccountBalance, error)

	// Derived portfolio performance.
	SavePerformance(p PortfolioPerformance) error
	PerformanceSeries(userID string, r date.Range) ([]PortfolioPerformance, error)
	EarliestPerformanceDate(userID string) (date.Date, bool, error)
}
