// Package repository содержит реализации хранилища токенов: JSON-файлы и PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tappass/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу токенов в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func parseAmount(s string) (model.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return model.Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return model.NewAmount(d), nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tx       model.Transaction
		currency string
		amount   string
		status   string
	)
	if err := row.Scan(&tx.ID, &tx.Encrypted, &currency, &amount, &tx.Expiry, &status); err != nil {
		return nil, err
	}

	a, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	tx.Currency = model.Currency(currency)
	tx.Amount = a
	tx.Status = model.Status(status)

	return &tx, nil
}

// AddTransaction сохраняет новую транзакцию.
func (r *PostgresRepository) AddTransaction(ctx context.Context, tx model.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (id, encrypted, currency, amount, expiry, status)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		tx.ID, tx.Encrypted, string(tx.Currency), tx.Amount.String(), tx.Expiry, string(tx.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrTransactionExists, tx.ID)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions возвращает все транзакции в порядке выпуска.
func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, encrypted, currency, amount::text, expiry, status
		 FROM transactions
		 ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	res := []model.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkUsed переводит первую действующую транзакцию с указанным идентификатором в статус used.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) (*model.Transaction, error) {
	var res *model.Transaction

	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE transactions SET status = $3
			 WHERE seq = (
			     SELECT seq FROM transactions
			     WHERE id = $1 AND status = $2
			     ORDER BY seq
			     LIMIT 1
			     FOR UPDATE
			 )
			 RETURNING id, encrypted, currency, amount::text, expiry, status`,
			id, string(model.StatusValid), string(model.StatusUsed),
		)

		tx, err := scanTransaction(row)
		if err != nil {
			return err
		}
		res = tx
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("mark used: %w", err)
	}

	return res, nil
}

// ShareTransaction в одной транзакции БД удаляет действующий токен и добавляет запись о передаче.
func (r *PostgresRepository) ShareTransaction(ctx context.Context, id, recipient string) (*model.SharedToken, error) {
	var res *model.SharedToken

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			token  string
			amount string
			expiry string
		)
		err = tx.QueryRow(ctx,
			`DELETE FROM transactions
			 WHERE seq = (
			     SELECT seq FROM transactions
			     WHERE id = $1 AND status = $2
			     ORDER BY seq
			     LIMIT 1
			     FOR UPDATE
			 )
			 RETURNING encrypted, amount::text, expiry`,
			id, string(model.StatusValid),
		).Scan(&token, &amount, &expiry)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO shared (recipient, token, amount, expiry, status)
			 VALUES ($1, $2, $3::numeric, $4, $5)`,
			recipient, token, amount, expiry, string(model.StatusSent),
		)
		if err != nil {
			return fmt.Errorf("insert shared: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		a, err := parseAmount(amount)
		if err != nil {
			return err
		}
		res = &model.SharedToken{
			To:     recipient,
			Token:  token,
			Amount: a,
			Expiry: expiry,
			Status: model.StatusSent,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("share transaction: %w", err)
	}

	return res, nil
}

// ListShared возвращает переданные токены в порядке передачи.
func (r *PostgresRepository) ListShared(ctx context.Context) ([]model.SharedToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT recipient, token, amount::text, expiry, status
		 FROM shared
		 ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("select shared: %w", err)
	}
	defer rows.Close()

	res := []model.SharedToken{}
	for rows.Next() {
		var (
			st     model.SharedToken
			amount string
			status string
		)
		if err := rows.Scan(&st.To, &st.Token, &amount, &st.Expiry, &status); err != nil {
			return nil, fmt.Errorf("scan shared: %w", err)
		}

		a, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		st.Amount = a
		st.Status = model.Status(status)
		res = append(res, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListPayees возвращает получателей в порядке добавления.
func (r *PostgresRepository) ListPayees(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM payees ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select payees: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		res = append(res, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddPayee добавляет получателя. Возвращает false, если имя уже есть.
func (r *PostgresRepository) AddPayee(ctx context.Context, name string) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO payees (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name,
	)
	if err != nil {
		return false, fmt.Errorf("insert payee: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}
