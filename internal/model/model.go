// Package model содержит доменные сущности симулятора NFC-токенов.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ExpiryLayout задаёт текстовый формат срока действия токена (YYYY/MM/DD HH:MM).
const ExpiryLayout = "2006/01/02 15:04"

// Status описывает состояние транзакции или переданного токена.
type Status string

const (
	StatusValid Status = "valid"
	StatusUsed  Status = "used"
	StatusSent  Status = "sent"
)

// Currency — валюта токена из фиксированного набора.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// Currencies перечисляет поддерживаемые валюты в порядке отображения.
var Currencies = []Currency{CurrencyUSD, CurrencyGBP, CurrencyEUR}

// ParseCurrency проверяет, что строка относится к поддерживаемому набору валют.
func ParseCurrency(s string) (Currency, error) {
	for _, c := range Currencies {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// DefaultPayees — список получателей, используемый до первого добавления.
var DefaultPayees = []string{"Alan", "Kevin", "John"}

// Amount — денежная сумма токена. В JSON сериализуется числом, а не строкой.
type Amount struct {
	decimal.Decimal
}

// NewAmount оборачивает decimal.Decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON записывает сумму как JSON-число.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Transaction — одноразовый платёжный токен, выпущенный эмитентом.
type Transaction struct {
	ID        string   `json:"id"`
	Encrypted string   `json:"encrypted"`
	Currency  Currency `json:"currency"`
	Amount    Amount   `json:"amount"`
	Expiry    string   `json:"expiry"`
	Status    Status   `json:"status"`
}

// SharedToken — токен, переданный получателю. Token содержит зашифрованный идентификатор.
type SharedToken struct {
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount Amount `json:"amount"`
	Expiry string `json:"expiry"`
	Status Status `json:"status"`
}

// Ledger — документ хранилища: выпущенные и переданные токены.
type Ledger struct {
	Transactions []Transaction `json:"transactions"`
	Shared       []SharedToken `json:"shared"`
}

// Normalize заменяет nil-списки пустыми, чтобы в JSON всегда были массивы.
func (l *Ledger) Normalize() {
	if l.Transactions == nil {
		l.Transactions = []Transaction{}
	}
	if l.Shared == nil {
		l.Shared = []SharedToken{}
	}
}
