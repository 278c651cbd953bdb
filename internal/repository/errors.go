package repository

import "errors"

var (
	// ErrTransactionNotFound возвращается, если действующая транзакция с указанным идентификатором не найдена.
	// Неизвестный и уже использованный идентификатор намеренно не различаются.
	ErrTransactionNotFound = errors.New("no valid transaction found")
	// ErrTransactionExists возвращается при повторной вставке транзакции с тем же идентификатором.
	ErrTransactionExists = errors.New("transaction already exists")
)
