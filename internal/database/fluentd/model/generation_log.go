package model

// GenerationLog 每次產生請求的結果
type GenerationLog struct {
	Envelope
	RequestID   string `json:"request_id,omitempty"`
	UserID      string `json:"user_id"`
	APIKeyID    string `json:"api_key_id,omitempty"`
	Channel     string `json:"channel"`
	QRCodeID    string `json:"qrcode_id,omitempty"`
	Result      string `json:"result"` // created / cached / denied
	Scope       string `json:"scope,omitempty"`
	HourlyUsed  int64  `json:"hourly_used"`
	DailyUsed   int64  `json:"daily_used"`
	MonthlyUsed int64  `json:"monthly_used"`
}
