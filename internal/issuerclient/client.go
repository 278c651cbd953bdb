// Package issuerclient предоставляет HTTP-клиент к API эмитента для удалённого банкомата.
package issuerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/tappass/internal/model"
)

var (
	// ErrNotFound возвращается, если эмитент не нашёл действующий токен.
	ErrNotFound = errors.New("no valid transaction found")
	// ErrNoPayload возвращается, если у эмитента пуст файл сканирования.
	ErrNoPayload = errors.New("no NFC data found")
)

// Client инкапсулирует HTTP-взаимодействие с эмитентом токенов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Redemption описывает ответ эмитента на погашение токена.
type Redemption struct {
	Currency model.Currency `json:"currency"`
	Amount   model.Amount   `json:"amount"`
	Status   model.Status   `json:"status"`
}

// NewClient создаёт HTTP-клиент для обращения к эмитенту по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Redeem гасит токен по открытому идентификатору.
func (c *Client) Redeem(ctx context.Context, id string) (*Redemption, error) {
	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/redeem", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Redemption
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// Scan читает текущий идентификатор из файла сканирования эмитента.
func (c *Client) Scan(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/nfc", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", ErrNoPayload
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", ErrNoPayload
	}
	return id, nil
}
