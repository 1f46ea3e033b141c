package domain

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// WalletID is the fixed row identity of the portfolio's single wallet.
const WalletID int64 = 1

// Wallet holds the portfolio's cash balance. Balance is never negative.
type Wallet struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletSummary combines the cash balance with the value of the holdings.
type WalletSummary struct {
	Balance          decimal.Decimal `json:"balance"`
	InvestedValue    decimal.Decimal `json:"investedValue"`
	MarketValue      decimal.Decimal `json:"marketValue"`
	NetWorth         decimal.Decimal `json:"netWorth"`
	FormattedBalance string          `json:"formattedBalance"`
	Currency         string          `json:"currency"`
}

// FormatMoney renders amount in the given ISO currency, rounded to the
// currency's minor unit (e.g. "$1,234.50").
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
