package core

import "time"

// Channel 產生請求的通道，也是配額與快取的分區鍵
type Channel string

const (
	ChannelSession Channel = "session"
	ChannelAPIKey  Channel = "apikey"
)

// Caller 已解析的呼叫者身分，只會是 SessionCaller 或 APIKeyCaller 其中之一
type Caller interface {
	SubjectID() string
	Channel() Channel
}

type SessionCaller struct {
	UserID   string
	Username string
	Role     Role
	TokenID  string
	// token 過期時間，登出時用來決定黑名單 TTL
	ExpiresAt time.Time
}

func (c *SessionCaller) SubjectID() string { return c.UserID }
func (c *SessionCaller) Channel() Channel  { return ChannelSession }

type APIKeyCaller struct {
	UserID    string
	KeyID     string
	KeyName   string
	Status    Status
	ExpiresAt *time.Time
}

func (c *APIKeyCaller) SubjectID() string { return c.UserID }
func (c *APIKeyCaller) Channel() Channel  { return ChannelAPIKey }

// Credential 尚未解析的原始憑證
type Credential struct {
	Channel Channel
	Secret  string
}

// gin.Context keys，由 middleware 寫入、handler 讀取
const (
	ContextCredentialKey = "credential"
	ContextCallerKey     = "caller"
)
