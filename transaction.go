package folio

import (
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/date"
)

// TransactionType classifies a cash movement on an account.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxDividend   TransactionType = "dividend"
	TxInterest   TransactionType = "interest"
	TxFee        TransactionType = "fee"
)

// Transaction is a dated cash movement on an account. Amount, Fee and Tax
// are all recorded positive; the sign of the resulting balance change is
// determined by the type.
type Transaction struct {
	ID          string
	AccountID   string
	UserID      string
	Type        TransactionType
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	Currency    string
	Date        date.Date
	Description string
}

// NetAmount is the signed effect of the transaction on the account balance:
// amount minus costs for money-in types, the negated total for money-out
// types, and zero for anything unknown.
func (t Transaction) NetAmount() decimal.Decimal {
	switch t.Type {
	case TxDeposit, TxDividend, TxInterest:
		return t.Amount.Sub(t.Fee).Sub(t.Tax)
	case TxWithdrawal, TxFee:
		return t.Amount.Add(t.Fee).Add(t.Tax).Neg()
	default:
		return decimal.Zero
	}
}

// AffectsPrincipal reports whether the transaction moves external capital in
// or out of the account. Dividends and interest are investment returns, not
// contributed capital.
func (t Transaction) AffectsPrincipal() bool {
	return t.Type == TxDeposit || t.Type == TxWithdrawal
}
