package model

// RequestLog 進站請求；Channel 依帶入的憑證判斷（apikey / session / 空字串）
type RequestLog struct {
	Envelope
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Route     string `json:"route,omitempty"`
	Query     string `json:"query,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Body      string `json:"body,omitempty"`
	IPHash    string `json:"ip_hash,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestTS string `json:"request_ts"`
}

// ResponseLog 成功回應帶 Body 預覽，錯誤回應帶 Code 與 Error
type ResponseLog struct {
	Envelope
	RequestID  string  `json:"request_id"`
	Method     string  `json:"method,omitempty"`
	Route      string  `json:"route,omitempty"`
	StatusCode int     `json:"status_code"`
	Code       int     `json:"code,omitempty"`
	Error      string  `json:"error,omitempty"`
	Body       string  `json:"body,omitempty"`
	LatencyMs  float64 `json:"latency_ms"`
	ResponseTS string  `json:"response_ts"`
}
