// Package service реализует жизненный цикл платёжных токенов.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mmeshcher/tappass/internal/model"
	"github.com/mmeshcher/tappass/internal/validation"
)

var (
	// ErrNoSuchToken возвращается, если по номеру в списке действующих токенов ничего не найдено.
	ErrNoSuchToken = errors.New("no such valid token")
	// ErrUnknownPayee возвращается при попытке передать токен получателю не из списка.
	ErrUnknownPayee = errors.New("unknown payee")
	// ErrSealerNotConfigured возвращается, если выпуск токена запрошен без ключа шифрования.
	ErrSealerNotConfigured = errors.New("sealer not configured")
)

// ScanWriteError возвращается, если токен сохранён, но его идентификатор
// не удалось записать в файл сканирования. ID указывает на сохранённую транзакцию.
type ScanWriteError struct {
	ID  string
	Err error
}

func (e *ScanWriteError) Error() string {
	return fmt.Sprintf("write scan payload for stored transaction %s: %v", e.ID, e.Err)
}

func (e *ScanWriteError) Unwrap() error {
	return e.Err
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	AddTransaction(ctx context.Context, tx model.Transaction) error
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	MarkUsed(ctx context.Context, id string) (*model.Transaction, error)
	ShareTransaction(ctx context.Context, id, recipient string) (*model.SharedToken, error)
	ListShared(ctx context.Context) ([]model.SharedToken, error)
	ListPayees(ctx context.Context) ([]string, error)
	AddPayee(ctx context.Context, name string) (bool, error)
}

// Sealer шифрует идентификатор токена.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// ScanChannel — канал имитации NFC-касания.
type ScanChannel interface {
	Write(id string) error
	Read() (string, error)
}

// IssueRequest содержит введённые пользователем параметры нового токена.
type IssueRequest struct {
	Currency   string
	Amount     string
	ExpiryDate string
	ExpiryTime string
}

// Service содержит бизнес-логику выпуска, передачи и погашения токенов.
type Service struct {
	repo   Repository
	sealer Sealer
	scan   ScanChannel
}

// NewService создаёт сервис. sealer может быть nil для процессов, которые только гасят токены.
func NewService(repo Repository, sealer Sealer, scan ScanChannel) *Service {
	return &Service{
		repo:   repo,
		sealer: sealer,
		scan:   scan,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// IssueToken выпускает новый токен, сохраняет его и записывает идентификатор в файл сканирования.
// При ошибке валидации ничего не сохраняется.
func (s *Service) IssueToken(ctx context.Context, req IssueRequest) (*model.Transaction, error) {
	currency, err := validation.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	expiry, err := validation.ParseExpiry(req.ExpiryDate, req.ExpiryTime)
	if err != nil {
		return nil, err
	}

	if s.sealer == nil {
		return nil, ErrSealerNotConfigured
	}

	id := uuid.NewString()
	encrypted, err := s.sealer.Seal(id)
	if err != nil {
		return nil, fmt.Errorf("seal token id: %w", err)
	}

	tx := model.Transaction{
		ID:        id,
		Encrypted: encrypted,
		Currency:  currency,
		Amount:    amount,
		Expiry:    expiry,
		Status:    model.StatusValid,
	}

	if err := s.repo.AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}

	if err := s.scan.Write(id); err != nil {
		return nil, &ScanWriteError{ID: id, Err: err}
	}

	return &tx, nil
}

// RedeemToken гасит действующий токен по идентификатору.
// Для неизвестного и уже использованного идентификатора возвращается одна и та же ошибка repository.ErrTransactionNotFound.
func (s *Service) RedeemToken(ctx context.Context, id string) (*model.Transaction, error) {
	id, err := validation.NormalizeTokenID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.MarkUsed(ctx, id)
}

// ScanPayload возвращает идентификатор из файла сканирования.
func (s *Service) ScanPayload(ctx context.Context) (string, error) {
	return s.scan.Read()
}

// ListTransactions возвращает все выпущенные транзакции.
func (s *Service) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// ListValidTransactions возвращает только действующие транзакции в порядке отображения.
func (s *Service) ListValidTransactions(ctx context.Context) ([]model.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Status == model.StatusValid {
			valid = append(valid, tx)
		}
	}
	return valid, nil
}

func (s *Service) validAt(ctx context.Context, index int) (*model.Transaction, error) {
	valid, err := s.ListValidTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(valid) {
		return nil, ErrNoSuchToken
	}
	return &valid[index], nil
}

// SendToken передаёт действующий токен с указанной позиции получателю.
func (s *Service) SendToken(ctx context.Context, index int, recipient string) (*model.SharedToken, error) {
	recipient, err := validation.NormalizeName(recipient)
	if err != nil {
		return nil, err
	}

	payees, err := s.repo.ListPayees(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(payees, recipient) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPayee, recipient)
	}

	tx, err := s.validAt(ctx, index)
	if err != nil {
		return nil, err
	}

	return s.repo.ShareTransaction(ctx, tx.ID, recipient)
}

// ExecuteToken помечает использованным действующий токен с указанной позиции.
func (s *Service) ExecuteToken(ctx context.Context, index int) (*model.Transaction, error) {
	tx, err := s.validAt(ctx, index)
	if err != nil {
		return nil, err
	}
	return s.repo.MarkUsed(ctx, tx.ID)
}

// ListShared возвращает токены, переданные получателям.
func (s *Service) ListShared(ctx context.Context) ([]model.SharedToken, error) {
	return s.repo.ListShared(ctx)
}

// ListPayees возвращает список получателей.
func (s *Service) ListPayees(ctx context.Context) ([]string, error) {
	return s.repo.ListPayees(ctx)
}

// AddPayee добавляет получателя. Повторное имя не меняет список, возвращается false.
func (s *Service) AddPayee(ctx context.Context, name string) (bool, error) {
	name, err := validation.NormalizeName(name)
	if err != nil {
		return false, err
	}
	return s.repo.AddPayee(ctx, name)
}
