// Package nfc имитирует канал NFC-касания через файл с единственным слотом.
package nfc

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoPayload возвращается, если файл сканирования отсутствует или пуст.
var ErrNoPayload = errors.New("no NFC data found")

// Channel читает и записывает текущий идентификатор токена в файл сканирования.
type Channel struct {
	path string
}

// NewChannel создаёт канал поверх указанного файла.
func NewChannel(path string) *Channel {
	return &Channel{path: path}
}

// Write перезаписывает файл сканирования идентификатором. Предыдущее содержимое теряется.
func (c *Channel) Write(id string) error {
	if err := os.WriteFile(c.path, []byte(id), 0o644); err != nil {
		return fmt.Errorf("write scan file: %w", err)
	}
	return nil
}

// Read возвращает идентификатор из файла сканирования.
func (c *Channel) Read() (string, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoPayload
	}
	if err != nil {
		return "", fmt.Errorf("read scan file: %w", err)
	}

	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", ErrNoPayload
	}
	return id, nil
}
