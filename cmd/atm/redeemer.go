package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmeshcher/tappass/internal/issuerclient"
	"github.com/mmeshcher/tappass/internal/model"
	"github.com/mmeshcher/tappass/internal/nfc"
	"github.com/mmeshcher/tappass/internal/repository"
	"github.com/mmeshcher/tappass/internal/service"
)

var (
	errNotFound  = errors.New("no valid transaction found for the provided ID")
	errNoPayload = errors.New("no NFC data found")
)

// userMessage возвращает текст, который банкомат показывает при отказе.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, errNotFound):
		return "No valid transaction found for the provided ID.", true
	case errors.Is(err, errNoPayload):
		return "No NFC data found.", true
	default:
		return "", false
	}
}

// receipt — то, что банкомат показывает после успешного погашения.
type receipt struct {
	Currency model.Currency
	Amount   model.Amount
}

type redeemer interface {
	Scan(ctx context.Context) (string, error)
	Redeem(ctx context.Context, id string) (*receipt, error)
}

type localRedeemer struct {
	svc *service.Service
}

func (r *localRedeemer) Scan(ctx context.Context) (string, error) {
	id, err := r.svc.ScanPayload(ctx)
	if errors.Is(err, nfc.ErrNoPayload) {
		return "", errNoPayload
	}
	return id, err
}

func (r *localRedeemer) Redeem(ctx context.Context, id string) (*receipt, error) {
	tx, err := r.svc.RedeemToken(ctx, id)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt{Currency: tx.Currency, Amount: tx.Amount}, nil
}

type remoteRedeemer struct {
	client *issuerclient.Client
}

func (r *remoteRedeemer) Scan(ctx context.Context) (string, error) {
	id, err := r.client.Scan(ctx)
	if errors.Is(err, issuerclient.ErrNoPayload) {
		return "", errNoPayload
	}
	return id, err
}

func (r *remoteRedeemer) Redeem(ctx context.Context, id string) (*receipt, error) {
	res, err := r.client.Redeem(ctx, id)
	if errors.Is(err, issuerclient.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt{Currency: res.Currency, Amount: res.Amount}, nil
}

// process выполняет один цикл банкомата: берёт идентификатор из аргументов
// или из файла сканирования и гасит токен.
func process(ctx context.Context, r redeemer, args []string, out io.Writer) error {
	id := ""
	if len(args) > 0 {
		id = strings.TrimSpace(args[0])
	}

	if id == "" {
		scanned, err := r.Scan(ctx)
		if err != nil {
			return err
		}
		id = scanned
		fmt.Fprintln(out, "Transaction ID scanned from NFC.")
	}

	res, err := r.Redeem(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Transaction for %s %s executed.\nStatus set to 'used'.\n", res.Currency, res.Amount.StringFixed(2))
	return nil
}
