package apikey

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// 格式：sk_<base64url(payload)>.<簽章前 16 字元>
const (
	Prefix       = "sk_"
	signatureLen = 16
)

var (
	ErrMalformed = errors.New("malformed api key")
	ErrSignature = errors.New("api key signature mismatch")
)

// APIKeyPayload 簽在 key 裡的識別資訊，可在查庫前先擋掉偽造的 key
type APIKeyPayload struct {
	UserID   string `json:"userID"`
	ApiKeyID string `json:"apiKeyID"`
	IssuedAt int64  `json:"issuedAt"`
}

func GenerateAPIKey(userID, apiKeyID, secret string) (string, error) {
	return generateAt(userID, apiKeyID, secret, time.Now())
}

func generateAt(userID, apiKeyID, secret string, issuedAt time.Time) (string, error) {
	raw, err := json.Marshal(APIKeyPayload{UserID: userID, ApiKeyID: apiKeyID, IssuedAt: issuedAt.Unix()})
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(raw)
	return Prefix + body + "." + sign(body, secret), nil
}

func ParseAndVerifyAPIKey(apiKey, secret string) (*APIKeyPayload, error) {
	rest, ok := strings.CutPrefix(apiKey, Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformed, Prefix)
	}
	body, sig, ok := strings.Cut(rest, ".")
	if !ok || body == "" || strings.Contains(sig, ".") {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(sign(body, secret)), []byte(sig)) {
		return nil, ErrSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var payload APIKeyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.UserID == "" || payload.ApiKeyID == "" {
		return nil, ErrMalformed
	}
	return &payload, nil
}

// Equal 與資料庫中的 key 做常數時間比對
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Mask 列表顯示用：sk_abcd…wxyz
func Mask(apiKey string) string {
	body := strings.TrimPrefix(apiKey, Prefix)
	if len(body) <= 8 {
		return Prefix + "…"
	}
	return Prefix + body[:4] + "…" + body[len(body)-4:]
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))[:signatureLen]
}
