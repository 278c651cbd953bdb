// Package handler содержит HTTP-обработчики API эмитента токенов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/tappass/internal/model"
	"github.com/mmeshcher/tappass/internal/nfc"
	"github.com/mmeshcher/tappass/internal/repository"
	"github.com/mmeshcher/tappass/internal/service"
	"github.com/mmeshcher/tappass/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	IssueToken(ctx context.Context, req service.IssueRequest) (*model.Transaction, error)
	RedeemToken(ctx context.Context, id string) (*model.Transaction, error)
	ScanPayload(ctx context.Context) (string, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	ListValidTransactions(ctx context.Context) ([]model.Transaction, error)
	SendToken(ctx context.Context, index int, recipient string) (*model.SharedToken, error)
	ExecuteToken(ctx context.Context, index int) (*model.Transaction, error)
	ListShared(ctx context.Context) ([]model.SharedToken, error)
	ListPayees(ctx context.Context) ([]string, error)
	AddPayee(ctx context.Context, name string) (bool, error)
}

// Handler реализует HTTP-обработчики API эмитента.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

type issueRequest struct {
	Currency   string      `json:"currency"`
	Amount     json.Number `json:"amount"`
	ExpiryDate string      `json:"expiry_date"`
	ExpiryTime string      `json:"expiry_time"`
}

// IssueToken выпускает новый токен и записывает его идентификатор в файл сканирования.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	tx, err := h.service.IssueToken(r.Context(), service.IssueRequest{
		Currency:   req.Currency,
		Amount:     req.Amount.String(),
		ExpiryDate: req.ExpiryDate,
		ExpiryTime: req.ExpiryTime,
	})
	if err != nil {
		if errors.Is(err, validation.ErrInvalidInput) {
			writeStatus(w, http.StatusBadRequest)
			return
		}
		var scanErr *service.ScanWriteError
		if errors.As(err, &scanErr) {
			h.logger.Error("token stored but scan payload not written", zap.String("id", scanErr.ID), zap.Error(scanErr.Err))
			writeStatus(w, http.StatusInternalServerError)
			return
		}
		h.logger.Error("issue token error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	h.logger.Info("token issued", zap.String("currency", string(tx.Currency)), zap.String("amount", tx.Amount.String()))
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) writeTransactions(w http.ResponseWriter, txs []model.Transaction) {
	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// ListTransactions возвращает все транзакции эмитента.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListTransactions(r.Context())
	if err != nil {
		h.logger.Error("list transactions error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	h.writeTransactions(w, txs)
}

// ListValidTransactions возвращает действующие транзакции; позиции в этом списке используются в send и execute.
func (h *Handler) ListValidTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListValidTransactions(r.Context())
	if err != nil {
		h.logger.Error("list valid transactions error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	h.writeTransactions(w, txs)
}

type sendRequest struct {
	Index int    `json:"index"`
	To    string `json:"to"`
}

// SendToken передаёт действующий токен получателю.
func (h *Handler) SendToken(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	shared, err := h.service.SendToken(r.Context(), req.Index, req.To)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidInput):
			writeStatus(w, http.StatusBadRequest)
		case errors.Is(err, service.ErrNoSuchToken), errors.Is(err, repository.ErrTransactionNotFound):
			writeStatus(w, http.StatusNotFound)
		case errors.Is(err, service.ErrUnknownPayee):
			writeStatus(w, http.StatusUnprocessableEntity)
		default:
			h.logger.Error("send token error", zap.Error(err), zap.Int("index", req.Index), zap.String("to", req.To))
			writeStatus(w, http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("token sent", zap.String("to", shared.To))
	writeJSON(w, http.StatusOK, shared)
}

type executeRequest struct {
	Index int `json:"index"`
}

// ExecuteToken помечает использованным действующий токен эмитента.
func (h *Handler) ExecuteToken(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	tx, err := h.service.ExecuteToken(r.Context(), req.Index)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchToken) || errors.Is(err, repository.ErrTransactionNotFound) {
			writeStatus(w, http.StatusNotFound)
			return
		}
		h.logger.Error("execute token error", zap.Error(err), zap.Int("index", req.Index))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListShared возвращает переданные токены.
func (h *Handler) ListShared(w http.ResponseWriter, r *http.Request) {
	shared, err := h.service.ListShared(r.Context())
	if err != nil {
		h.logger.Error("list shared error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	if len(shared) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, shared)
}

// ListPayees возвращает список получателей.
func (h *Handler) ListPayees(w http.ResponseWriter, r *http.Request) {
	payees, err := h.service.ListPayees(r.Context())
	if err != nil {
		h.logger.Error("list payees error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, payees)
}

type payeeRequest struct {
	Name string `json:"name"`
}

// AddPayee добавляет получателя: 201 — добавлен, 200 — уже был в списке.
func (h *Handler) AddPayee(w http.ResponseWriter, r *http.Request) {
	var req payeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	added, err := h.service.AddPayee(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidInput) {
			writeStatus(w, http.StatusBadRequest)
			return
		}
		h.logger.Error("add payee error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	if added {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type redeemRequest struct {
	ID string `json:"id"`
}

// RedeemResponse — результат погашения токена.
type RedeemResponse struct {
	Currency model.Currency `json:"currency"`
	Amount   model.Amount   `json:"amount"`
	Status   model.Status   `json:"status"`
}

// RedeemToken гасит токен по открытому идентификатору. Неизвестный и использованный
// идентификаторы дают одинаковый ответ 404.
func (h *Handler) RedeemToken(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	tx, err := h.service.RedeemToken(r.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidInput):
			writeStatus(w, http.StatusBadRequest)
		case errors.Is(err, repository.ErrTransactionNotFound):
			writeStatus(w, http.StatusNotFound)
		default:
			h.logger.Error("redeem token error", zap.Error(err))
			writeStatus(w, http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("token redeemed", zap.String("currency", string(tx.Currency)), zap.String("amount", tx.Amount.String()))
	writeJSON(w, http.StatusOK, RedeemResponse{
		Currency: tx.Currency,
		Amount:   tx.Amount,
		Status:   tx.Status,
	})
}

// ScanPayload возвращает текущее содержимое файла сканирования.
func (h *Handler) ScanPayload(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.ScanPayload(r.Context())
	if err != nil {
		if errors.Is(err, nfc.ErrNoPayload) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error("scan payload error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(id))
}
