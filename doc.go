// Package folio tracks multi-account, multi-currency investment portfolios:
// cash movements, buy/sell trade lifecycles with partial exits, security
// price history, and the daily performance series derived from them.
//
// The core of the package is the incremental recomputation engine:
//   - Recalculator rebuilds an account's day-by-day balance series from the
//     earliest affected date forward, folding transactions, trade entries and
//     trade exits into running totals and marking held positions to market.
//   - Aggregator sums all of a user's account snapshots into one portfolio
//     performance row per day, converted into the user's preferred currency.
//   - MaxDrawdown and TimeWeightedReturn derive risk and return figures from
//     the portfolio series on demand.
//
// Derived rows (AccountBalance, PortfolioPerformance) are never edited
// directly: recomputation is authoritative and idempotent, so a retroactive
// edit of any event is handled by re-running the engine from the event's
// date. Persistence is abstracted behind the Store interface; see the sqlite
// subpackage for the durable implementation and MemoryStore for tests.
package folio
