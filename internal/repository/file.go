package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/mmeshcher/tappass/internal/model"
)

// FileRepository хранит транзакции и получателей в JSON-файлах.
// Каждая операция читает файл целиком, изменяет данные в памяти и полностью перезаписывает файл.
// Мьютекс упорядочивает операции внутри процесса; между процессами блокировок нет.
type FileRepository struct {
	mu         sync.Mutex
	storePath  string
	payeesPath string
}

// NewFileRepository создаёт файловый репозиторий.
func NewFileRepository(storePath, payeesPath string) *FileRepository {
	return &FileRepository{
		storePath:  storePath,
		payeesPath: payeesPath,
	}
}

// Close ничего не освобождает: файлы открываются только на время операции.
func (r *FileRepository) Close() error {
	return nil
}

func (r *FileRepository) loadLedger() (*model.Ledger, error) {
	ledger := &model.Ledger{}

	raw, err := os.ReadFile(r.storePath)
	if errors.Is(err, os.ErrNotExist) {
		ledger.Normalize()
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(raw, ledger); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	ledger.Normalize()

	return ledger, nil
}

func (r *FileRepository) saveLedger(ledger *model.Ledger) error {
	ledger.Normalize()
	return writeJSON(r.storePath, ledger)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// AddTransaction добавляет транзакцию в конец списка.
func (r *FileRepository) AddTransaction(ctx context.Context, tx model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadLedger()
	if err != nil {
		return err
	}

	ledger.Transactions = append(ledger.Transactions, tx)
	return r.saveLedger(ledger)
}

// ListTransactions возвращает все транзакции в порядке выпуска.
func (r *FileRepository) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadLedger()
	if err != nil {
		return nil, err
	}
	return ledger.Transactions, nil
}

// MarkUsed переводит первую действующую транзакцию с указанным идентификатором в статус used.
func (r *FileRepository) MarkUsed(ctx context.Context, id string) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadLedger()
	if err != nil {
		return nil, err
	}

	for i := range ledger.Transactions {
		tx := &ledger.Transactions[i]
		if tx.ID != id || tx.Status != model.StatusValid {
			continue
		}

		tx.Status = model.StatusUsed
		if err := r.saveLedger(ledger); err != nil {
			return nil, err
		}
		res := *tx
		return &res, nil
	}

	return nil, ErrTransactionNotFound
}

// ShareTransaction убирает действующую транзакцию из списка и добавляет запись о передаче получателю.
func (r *FileRepository) ShareTransaction(ctx context.Context, id, recipient string) (*model.SharedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadLedger()
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(ledger.Transactions, func(tx model.Transaction) bool {
		return tx.ID == id && tx.Status == model.StatusValid
	})
	if idx < 0 {
		return nil, ErrTransactionNotFound
	}

	tx := ledger.Transactions[idx]
	shared := model.SharedToken{
		To:     recipient,
		Token:  tx.Encrypted,
		Amount: tx.Amount,
		Expiry: tx.Expiry,
		Status: model.StatusSent,
	}

	ledger.Shared = append(ledger.Shared, shared)
	ledger.Transactions = slices.Delete(ledger.Transactions, idx, idx+1)

	if err := r.saveLedger(ledger); err != nil {
		return nil, err
	}
	return &shared, nil
}

// ListShared возвращает переданные токены в порядке передачи.
func (r *FileRepository) ListShared(ctx context.Context) ([]model.SharedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.loadLedger()
	if err != nil {
		return nil, err
	}
	return ledger.Shared, nil
}

func (r *FileRepository) loadPayees() ([]string, error) {
	raw, err := os.ReadFile(r.payeesPath)
	if errors.Is(err, os.ErrNotExist) {
		return slices.Clone(model.DefaultPayees), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read payees: %w", err)
	}

	var payees []string
	if err := json.Unmarshal(raw, &payees); err != nil {
		return nil, fmt.Errorf("decode payees: %w", err)
	}
	if payees == nil {
		payees = []string{}
	}
	return payees, nil
}

// ListPayees возвращает список получателей. Если файла нет, возвращается список по умолчанию.
func (r *FileRepository) ListPayees(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loadPayees()
}

// AddPayee добавляет получателя в конец списка. Возвращает false, если имя уже есть.
func (r *FileRepository) AddPayee(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payees, err := r.loadPayees()
	if err != nil {
		return false, err
	}

	if slices.Contains(payees, name) {
		return false, nil
	}

	payees = append(payees, name)
	if err := writeJSON(r.payeesPath, payees); err != nil {
		return false, err
	}
	return true, nil
}
