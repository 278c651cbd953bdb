// Package validation содержит функции валидации пользовательского ввода.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tappass/internal/model"
)

// ErrInvalidInput возвращается при некорректном пользовательском вводе.
var ErrInvalidInput = errors.New("invalid input")

// DefaultExpiryTime подставляется, если время окончания действия не указано.
const DefaultExpiryTime = "12:00"

const (
	// maxAmountLen ограничивает длину текста суммы до разбора.
	maxAmountLen = 32
	// maxAmountPlaces — число знаков после запятой.
	maxAmountPlaces = 2
)

// maxAmount — верхняя граница суммы токена (не включительно).
var maxAmount = decimal.New(1, 15)

// ParseAmount разбирает сумму токена: положительное число в обычной записи,
// не больше двух знаков после запятой. Экспоненциальная запись отклоняется.
func ParseAmount(s string) (model.Amount, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAmountLen || strings.ContainsAny(s, "eE") {
		return model.Amount{}, fmt.Errorf("%w: amount %q is out of range", ErrInvalidInput, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return model.Amount{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	if !d.IsPositive() {
		return model.Amount{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !d.Equal(d.Round(maxAmountPlaces)) {
		return model.Amount{}, fmt.Errorf("%w: amount %q has more than %d decimal places", ErrInvalidInput, s, maxAmountPlaces)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return model.Amount{}, fmt.Errorf("%w: amount %q is out of range", ErrInvalidInput, s)
	}
	return model.NewAmount(d), nil
}

// ParseCurrency проверяет код валюты.
func ParseCurrency(s string) (model.Currency, error) {
	c, err := model.ParseCurrency(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return c, nil
}

// ParseExpiry собирает дату (YYYY/MM/DD) и время (HH:MM) и возвращает
// нормализованную строку срока действия.
func ParseExpiry(date, clock string) (string, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = DefaultExpiryTime
	}

	raw := strings.TrimSpace(date) + " " + clock
	t, err := time.Parse(model.ExpiryLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: expiry %q does not match YYYY/MM/DD HH:MM", ErrInvalidInput, raw)
	}
	return t.Format(model.ExpiryLayout), nil
}

// NormalizeName обрезает пробелы в имени получателя и отклоняет пустые имена.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidInput)
	}
	return name, nil
}

// NormalizeTokenID обрезает пробелы в идентификаторе токена и отклоняет пустой ввод.
func NormalizeTokenID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: transaction id is empty", ErrInvalidInput)
	}
	return id, nil
}
