package sqlite

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio"
	"github.com/foliotrack/folio/date"
)

var _ folio.Store = (*Store)(nil)

// Decimals are stored as TEXT to keep exact values; dates as YYYY-MM-DD
// TEXT, which sorts and compares correctly as strings.

func scanDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func scanDate(s string) (date.Date, error) {
	return date.Parse(s)
}

// --- accounts and preferences ---

func (s *Store) Account(id string) (folio.Account, error) {
	row := s.db.QueryRow(`SELECT id, user_id, name, type, currency, active FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (s *Store) AccountsByUser(userID string) ([]folio.Account, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, type, currency, active FROM accounts WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []folio.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) SaveAccount(a folio.Account) error {
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, user_id, name, type, currency, active) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, name = excluded.name,
			type = excluded.type, currency = excluded.currency, active = excluded.active`,
		a.ID, a.UserID, a.Name, string(a.Type), a.Currency, a.Active)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (folio.Account, error) {
	var a folio.Account
	var typ string
	err := r.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Currency, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return a, folio.ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Type = folio.AccountType(typ)
	return a, nil
}

func (s *Store) Preference(userID string) (folio.UserPreference, error) {
	var p folio.UserPreference
	err := s.db.QueryRow(`SELECT user_id, currency, language FROM preferences WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Currency, &p.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return p, folio.ErrNotFound
	}
	return p, err
}

func (s *Store) SavePreference(p folio.UserPreference) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (user_id, currency, language) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET currency = excluded.currency, language = excluded.language`,
		p.UserID, p.Currency, p.Language)
	return err
}

// --- securities and prices ---

func (s *Store) Security(id string) (folio.Security, error) {
	var sec folio.Security
	err := s.db.QueryRow(`SELECT id, user_id, code, exchange, name, source FROM securities WHERE id = ?`, id).
		Scan(&sec.ID, &sec.UserID, &sec.Code, &sec.Exchange, &sec.Name, &sec.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return sec, folio.ErrNotFound
	}
	return sec, err
}

func (s *Store) SecurityByCode(code string) (folio.Security, bool, error) {
	var sec folio.Security
	err := s.db.QueryRow(`SELECT id, user_id, code, exchange, name, source FROM securities WHERE code = ? ORDER BY id LIMIT 1`, code).
		Scan(&sec.ID, &sec.UserID, &sec.Code, &sec.Exchange, &sec.Name, &sec.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return sec, false, nil
	}
	if err != nil {
		return sec, false, err
	}
	return sec, true, nil
}

func (s *Store) SaveSecurity(sec folio.Security) error {
	_, err := s.db.Exec(`
		INSERT INTO securities (id, user_id, code, exchange, name, source) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, code = excluded.code,
			exchange = excluded.exchange, name = excluded.name, source = excluded.source`,
		sec.ID, sec.UserID, sec.Code, sec.Exchange, sec.Name, sec.Source)
	return err
}

func (s *Store) Price(securityID string, on date.Date) (decimal.Decimal, bool, error) {
	var close string
	err := s.db.QueryRow(`SELECT close FROM prices WHERE security_id = ? AND date = ? AND CAST(close AS REAL) > 0`,
		securityID, on.String()).Scan(&close)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := scanDecimal(close)
	return d, err == nil, err
}

func (s *Store) PriceOnOrBefore(securityID string, on date.Date) (decimal.Decimal, bool, error) {
	var close string
	err := s.db.QueryRow(`
		SELECT close FROM prices WHERE security_id = ? AND date <= ? AND CAST(close AS REAL) > 0
		ORDER BY date DESC LIMIT 1`,
		securityID, on.String()).Scan(&close)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := scanDecimal(close)
	return d, err == nil, err
}

func (s *Store) SavePrice(p folio.SecurityPrice) error {
	_, err := s.db.Exec(`
		INSERT INTO prices (security_id, date, open, high, low, close, adjusted_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (security_id, date) DO UPDATE SET open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close, adjusted_close = excluded.adjusted_close,
			volume = excluded.volume`,
		p.SecurityID, p.Date.String(), p.Open.String(), p.High.String(), p.Low.String(),
		p.Close.String(), p.AdjustedClose.String(), p.Volume)
	return err
}

// --- transactions ---

const txColumns = `id, account_id, user_id, type, amount, fee, tax, currency, date, description`

func (s *Store) Transaction(id string) (folio.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) SaveTransaction(t folio.Transaction) error {
	_, err := s.db.Exec(`
		INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET account_id = excluded.account_id, user_id = excluded.user_id,
			type = excluded.type, amount = excluded.amount, fee = excluded.fee, tax = excluded.tax,
			currency = excluded.currency, date = excluded.date, description = excluded.description`,
		t.ID, t.AccountID, t.UserID, string(t.Type), t.Amount.String(), t.Fee.String(),
		t.Tax.String(), t.Currency, t.Date.String(), t.Description)
	return err
}

func (s *Store) DeleteTransaction(id string) error {
	_, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func (s *Store) TransactionsByAccountFrom(accountID string, from date.Date) ([]folio.Transaction, error) {
	rows, err := s.db.Query(`SELECT `+txColumns+` FROM transactions WHERE account_id = ? AND date >= ? ORDER BY date, id`,
		accountID, from.String())
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (s *Store) TransactionsByUserOn(userID string, on date.Date) ([]folio.Transaction, error) {
	rows, err := s.db.Query(`SELECT `+txColumns+` FROM transactions WHERE user_id = ? AND date = ? ORDER BY id`,
		userID, on.String())
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (s *Store) FirstTransactionDate(accountID string) (date.Date, bool, error) {
	var day sql.NullString
	err := s.db.QueryRow(`SELECT MIN(date) FROM transactions WHERE account_id = ?`, accountID).Scan(&day)
	if err != nil {
		return date.Date{}, false, err
	}
	if !day.Valid {
		return date.Date{}, false, nil
	}
	d, err := scanDate(day.String)
	return d, err == nil, err
}

func collectTransactions(rows *sql.Rows) ([]folio.Transaction, error) {
	defer rows.Close()
	var txs []folio.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(r rowScanner) (folio.Transaction, error) {
	var t folio.Transaction
	var typ, amount, fee, tax, day string
	err := r.Scan(&t.ID, &t.AccountID, &t.UserID, &typ, &amount, &fee, &tax, &t.Currency, &day, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return t, folio.ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Type = folio.TransactionType(typ)
	if t.Amount, err = scanDecimal(amount); err != nil {
		return t, err
	}
	if t.Fee, err = scanDecimal(fee); err != nil {
		return t, err
	}
	if t.Tax, err = scanDecimal(tax); err != nil {
		return t, err
	}
	t.Date, err = scanDate(day)
	return t, err
}

// --- trade entries and exits ---

const entryColumns = `id, account_id, security_id, quantity, price, fee, tax, date, note`

func (s *Store) Entry(id string) (folio.TradeEntry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM trade_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		return e, err
	}
	e.Exits, err = s.exitsOf(e.ID)
	return e, err
}

func (s *Store) SaveEntry(e folio.TradeEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO trade_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET account_id = excluded.account_id, security_id = excluded.security_id,
			quantity = excluded.quantity, price = excluded.price, fee = excluded.fee, tax = excluded.tax,
			date = excluded.date, note = excluded.note`,
		e.ID, e.AccountID, e.SecurityID, e.Quantity.String(), e.Price.String(),
		e.Fee.String(), e.Tax.String(), e.Date.String(), e.Note)
	return err
}

func (s *Store) DeleteEntry(id string) error {
	_, err := s.db.Exec(`DELETE FROM trade_entries WHERE id = ?`, id)
	return err
}

func (s *Store) EntriesByAccount(accountID string) ([]folio.TradeEntry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM trade_entries WHERE account_id = ? ORDER BY date, id`, accountID)
	if err != nil {
		return nil, err
	}
	return s.collectEntries(rows)
}

func (s *Store) EntriesBySecurity(securityID string) ([]folio.TradeEntry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM trade_entries WHERE security_id = ? ORDER BY date, id`, securityID)
	if err != nil {
		return nil, err
	}
	return s.collectEntries(rows)
}

func (s *Store) collectEntries(rows *sql.Rows) ([]folio.TradeEntry, error) {
	defer rows.Close()
	var entries []folio.TradeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		exits, err := s.exitsOf(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Exits = exits
	}
	return entries, nil
}

func scanEntry(r rowScanner) (folio.TradeEntry, error) {
	var e folio.TradeEntry
	var quantity, price, fee, tax, day string
	err := r.Scan(&e.ID, &e.AccountID, &e.SecurityID, &quantity, &price, &fee, &tax, &day, &e.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return e, folio.ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if e.Quantity, err = scanDecimal(quantity); err != nil {
		return e, err
	}
	if e.Price, err = scanDecimal(price); err != nil {
		return e, err
	}
	if e.Fee, err = scanDecimal(fee); err != nil {
		return e, err
	}
	if e.Tax, err = scanDecimal(tax); err != nil {
		return e, err
	}
	e.Date, err = scanDate(day)
	return e, err
}

func (s *Store) exitsOf(entryID string) ([]folio.TradeExit, error) {
	rows, err := s.db.Query(`SELECT id, entry_id, quantity, price, fee, tax, date FROM trade_exits WHERE entry_id = ? ORDER BY date, id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exits []folio.TradeExit
	for rows.Next() {
		x, err := scanExit(rows)
		if err != nil {
			return nil, err
		}
		exits = append(exits, x)
	}
	return exits, rows.Err()
}

func (s *Store) Exit(id string) (folio.TradeExit, error) {
	row := s.db.QueryRow(`SELECT id, entry_id, quantity, price, fee, tax, date FROM trade_exits WHERE id = ?`, id)
	return scanExit(row)
}

func (s *Store) SaveExit(x folio.TradeExit) error {
	_, err := s.db.Exec(`
		INSERT INTO trade_exits (id, entry_id, quantity, price, fee, tax, date) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET entry_id = excluded.entry_id, quantity = excluded.quantity,
			price = excluded.price, fee = excluded.fee, tax = excluded.tax, date = excluded.date`,
		x.ID, x.EntryID, x.Quantity.String(), x.Price.String(), x.Fee.String(), x.Tax.String(), x.Date.String())
	return err
}

func (s *Store) DeleteExit(id string) error {
	_, err := s.db.Exec(`DELETE FROM trade_exits WHERE id = ?`, id)
	return err
}

func scanExit(r rowScanner) (folio.TradeExit, error) {
	var x folio.TradeExit
	var quantity, price, fee, tax, day string
	err := r.Scan(&x.ID, &x.EntryID, &quantity, &price, &fee, &tax, &day)
	if errors.Is(err, sql.ErrNoRows) {
		return x, folio.ErrNotFound
	}
	if err != nil {
		return x, err
	}
	if x.Quantity, err = scanDecimal(quantity); err != nil {
		return x, err
	}
	if x.Price, err = scanDecimal(price); err != nil {
		return x, err
	}
	if x.Fee, err = scanDecimal(fee); err != nil {
		return x, err
	}
	if x.Tax, err = scanDecimal(tax); err != nil {
		return x, err
	}
	x.Date, err = scanDate(day)
	return x, err
}

// --- derived balances ---

const balanceColumns = `account_id, date, balance, fee, tax, principal, float_equity`

func (s *Store) LatestBalanceDate(accountID string) (date.Date, bool, error) {
	var day sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM balances WHERE account_id = ?`, accountID).Scan(&day)
	if err != nil {
		return date.Date{}, false, err
	}
	if !day.Valid {
		return date.Date{}, false, nil
	}
	d, err := scanDate(day.String)
	return d, err == nil, err
}

func (s *Store) BalanceBefore(accountID string, on date.Date) (folio.AccountBalance, bool, error) {
	row := s.db.QueryRow(`SELECT `+balanceColumns+` FROM balances WHERE account_id = ? AND date < ? ORDER BY date DESC LIMIT 1`,
		accountID, on.String())
	b, err := scanBalance(row)
	if errors.Is(err, folio.ErrNotFound) {
		return b, false, nil
	}
	return b, err == nil, err
}

func (s *Store) DeleteBalancesFrom(accountID string, from date.Date) error {
	_, err := s.db.Exec(`DELETE FROM balances WHERE account_id = ? AND date >= ?`, accountID, from.String())
	return err
}

func (s *Store) SaveBalance(b folio.AccountBalance) error {
	_, err := s.db.Exec(`
		INSERT INTO balances (`+balanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, date) DO UPDATE SET balance = excluded.balance, fee = excluded.fee,
			tax = excluded.tax, principal = excluded.principal, float_equity = excluded.float_equity`,
		b.AccountID, b.Date.String(), b.Balance.String(), b.Fee.String(), b.Tax.String(),
		b.Principal.String(), b.Float.String())
	return err
}

func (s *Store) BalancesByUserOn(userID string, on date.Date) ([]folio.AccountBalance, error) {
	rows, err := s.db.Query(`
		SELECT b.account_id, b.date, b.balance, b.fee, b.tax, b.principal, b.float_equity
		FROM balances b JOIN accounts a ON a.id = b.account_id
		WHERE a.user_id = ? AND b.date = ? ORDER BY b.account_id`,
		userID, on.String())
	if err != nil {
		return nil, err
	}
	return collectBalances(rows)
}

func (s *Store) BalanceSeries(accountID string, r date.Range) ([]folio.AccountBalance, error) {
	rows, err := s.db.Query(`SELECT `+balanceColumns+` FROM balances WHERE account_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		accountID, r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	return collectBalances(rows)
}

func collectBalances(rows *sql.Rows) ([]folio.AccountBalance, error) {
	defer rows.Close()
	var balances []folio.AccountBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func scanBalance(r rowScanner) (folio.AccountBalance, error) {
	var b folio.AccountBalance
	var day, balance, fee, tax, principal, float string
	err := r.Scan(&b.AccountID, &day, &balance, &fee, &tax, &principal, &float)
	if errors.Is(err, sql.ErrNoRows) {
		return b, folio.ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if b.Date, err = scanDate(day); err != nil {
		return b, err
	}
	if b.Balance, err = scanDecimal(balance); err != nil {
		return b, err
	}
	if b.Fee, err = scanDecimal(fee); err != nil {
		return b, err
	}
	if b.Tax, err = scanDecimal(tax); err != nil {
		return b, err
	}
	if b.Principal, err = scanDecimal(principal); err != nil {
		return b, err
	}
	b.Float, err = scanDecimal(float)
	return b, err
}

// --- derived portfolio performance ---

func (s *Store) SavePerformance(p folio.PortfolioPerformance) error {
	_, err := s.db.Exec(`
		INSERT INTO performance (user_id, date, principal, balance, float_equity, fee, tax, flow)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET principal = excluded.principal,
			balance = excluded.balance, float_equity = excluded.float_equity,
			fee = excluded.fee, tax = excluded.tax, flow = excluded.flow`,
		p.UserID, p.Date.String(), p.Principal.String(), p.Balance.String(), p.Float.String(),
		p.Fee.String(), p.Tax.String(), p.Transaction.String())
	return err
}

func (s *Store) PerformanceSeries(userID string, r date.Range) ([]folio.PortfolioPerformance, error) {
	rows, err := s.db.Query(`
		SELECT user_id, date, principal, balance, float_equity, fee, tax, flow
		FROM performance WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series []folio.PortfolioPerformance
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

func (s *Store) EarliestPerformanceDate(userID string) (date.Date, bool, error) {
	var day sql.NullString
	err := s.db.QueryRow(`SELECT MIN(date) FROM performance WHERE user_id = ?`, userID).Scan(&day)
	if err != nil {
		return date.Date{}, false, err
	}
	if !day.Valid {
		return date.Date{}, false, nil
	}
	d, err := scanDate(day.String)
	return d, err == nil, err
}

func scanPerformance(r rowScanner) (folio.PortfolioPerformance, error) {
	var p folio.PortfolioPerformance
	var day, principal, balance, float, fee, tax, flow string
	err := r.Scan(&p.UserID, &day, &principal, &balance, &float, &fee, &tax, &flow)
	if err != nil {
		return p, err
	}
	if p.Date, err = scanDate(day); err != nil {
		return p, err
	}
	if p.Principal, err = scanDecimal(principal); err != nil {
		return p, err
	}
	if p.Balance, err = scanDecimal(balance); err != nil {
		return p, err
	}
	if p.Float, err = scanDecimal(float); err != nil {
		return p, err
	}
	if p.Fee, err = scanDecimal(fee); err != nil {
		return p, err
	}
	if p.Tax, err = scanDecimal(tax); err != nil {
		return p, err
	}
	p.Transaction, err = scanDecimal(flow)
	return p, err
}
