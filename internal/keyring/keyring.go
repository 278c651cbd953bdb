// Package keyring управляет постоянным симметричным ключом и шифрованием идентификаторов токенов.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// ErrInvalidToken возвращается, если шифротекст не прошёл проверку подписи.
var ErrInvalidToken = errors.New("invalid token")

// Sealer шифрует идентификаторы токенов ключом Fernet.
type Sealer struct {
	key *fernet.Key
}

// LoadOrCreate читает ключ из файла, а при его отсутствии генерирует новый и сохраняет.
func LoadOrCreate(path string) (*Sealer, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := fernet.DecodeKey(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}

	return &Sealer{key: key}, nil
}

func create(path string) (*Sealer, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.WriteFile(path, []byte(key.Encode()), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return &Sealer{key: &key}, nil
}

// Seal шифрует открытый текст и возвращает токен Fernet.
func (s *Sealer) Seal(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), s.key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

// Open проверяет и расшифровывает токен. В рабочих сценариях не используется.
func (s *Sealer) Open(token string, ttl time.Duration) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), ttl, []*fernet.Key{s.key})
	if msg == nil {
		return "", ErrInvalidToken
	}
	return string(msg), nil
}
