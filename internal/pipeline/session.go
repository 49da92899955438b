package pipeline

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DougGuttenberg/halacha-helper/internal/domain"
)

// TokenCodec signs and verifies the opaque session token round-tripped
// through the client between turns. The token is base64(JSON payload) plus an
// HMAC-SHA256 tag; a verified token is the server's own prior output, so its
// contents are trusted without re-running triage.
type TokenCodec struct {
	key []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{key: []byte(secret)}
}

var errBadToken = errors.New("session token invalid")

// Encode serializes and signs a session state.
func (c *TokenCodec) Encode(s *domain.SessionState) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session state: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + c.sign(body), nil
}

// Decode verifies the signature and returns the embedded session state.
func (c *TokenCodec) Decode(token string) (*domain.SessionState, error) {
	body, tag, ok := strings.Cut(token, ".")
	if !ok {
		return nil, errBadToken
	}
	if !hmac.Equal([]byte(c.sign(body)), []byte(tag)) {
		return nil, errBadToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, errBadToken
	}
	var s domain.SessionState
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, errBadToken
	}
	return &s, nil
}

func (c *TokenCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
