package service

import (
	"errors"
	"log/slog"

	"github.com/maheshrc27/dmflow/pkg/utils"
)

var (
	ErrNoActiveAccount = errors.New("no active account")
	ErrNoLinkedAccount = errors.New("no page is linked to this token")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPostNotPending  = errors.New("post is no longer pending")
)

// tokenSealer encrypts stored access tokens when the secret key is a valid
// AES key length. Without one tokens are stored as given.
type tokenSealer struct {
	key []byte
}

func newTokenSealer(secretKey string) tokenSealer {
	switch len(secretKey) {
	case 16, 24, 32:
		return tokenSealer{key: []byte(secretKey)}
	}
	if secretKey != "" {
		slog.Warn("SECRET_KEY is not 16, 24 or 32 bytes long, access tokens are stored unencrypted")
	}
	return tokenSealer{}
}

func (s tokenSealer) seal(token string) (string, error) {
	if s.key == nil || token == "" {
		return token, nil
	}
	return utils.Encrypt([]byte(token), s.key)
}

// open returns the plaintext token. Tokens written before encryption was
// enabled do not decrypt and are returned unchanged.
func (s tokenSealer) open(stored string) string {
	if s.key == nil || !utils.IsEncrypted(stored) {
		return stored
	}
	plain, err := utils.Decrypt(stored, s.key)
	if err != nil {
		return stored
	}
	return plain
}
