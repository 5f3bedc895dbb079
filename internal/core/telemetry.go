package core

const ContextTraceKey = "telemetry_trace_ctx"

// ==== 型別安全 span name ====
type TraceSpanName string

const (
	SpanHttpRequest        TraceSpanName = "http_request"
	SpanLoggerMiddleware   TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware     TraceSpanName = "cors_middleware"
	SpanResponseMiddleware TraceSpanName = "response_middleware"
	SpanAPIKeyMiddleware   TraceSpanName = "api_key_middleware"
	SpanSessionMiddleware  TraceSpanName = "session_middleware"
	SpanThrottleMiddleware TraceSpanName = "throttle_middleware"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal   MetricName = "requests_total"
	MetricHttpRequestDuration MetricName = "request_duration_seconds"
	MetricGenerationsTotal    MetricName = "qrcode_generations_total"
	MetricQuotaDeniedTotal    MetricName = "quota_denied_total"
	MetricScansTotal          MetricName = "qrcode_scans_total"
	MetricBreakerState        MetricName = "encoder_breaker_state"
	MetricThrottledTotal      MetricName = "throttled_total"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelChannel  MetricLabelName = "channel"
	MetricLabelResult   MetricLabelName = "result"
	MetricLabelScope    MetricLabelName = "scope"
	MetricLabelBreaker  MetricLabelName = "name"
	MetricLabelBucket   MetricLabelName = "bucket"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Scheme     string            `trace:"http.scheme"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
	Params     map[string]string `trace:"http.request.param"`
}

type TraceAdminUserListMeta struct {
	Page        int64          `trace:"list.page"`
	Size        int64          `trace:"list.size"`
	Role        string         `trace:"list.role,omitempty"`
	Status      string         `trace:"list.status,omitempty"`
	Filter      map[string]any `trace:"filter,omitempty"`
	ResultCount int            `trace:"result.count,omitempty"`
}

// 供 Redis 限流 Consume 使用
type TraceThrottleMeta struct {
	Bucket    string `trace:"throttle.bucket"`
	Subject   string `trace:"throttle.subject"`
	Limit     int    `trace:"throttle.limit_count"`
	WindowSec int64  `trace:"throttle.window_sec"`
	Remaining int    `trace:"throttle.remaining,omitempty"`
	TTL       int64  `trace:"throttle.ttl_sec,omitempty"`
	Blocked   bool   `trace:"throttle.blocked"`
}

type TraceIdentityMeta struct {
	Channel  string `trace:"auth.channel"`
	UserID   string `trace:"auth.user_id,omitempty"`
	APIKeyID string `trace:"auth.api_key_id,omitempty"`
	Status   string `trace:"auth.status"`
}

type TraceQuotaMeta struct {
	Channel      string `trace:"quota.channel"`
	Owner        string `trace:"quota.owner"`
	HourlyUsed   int64  `trace:"quota.hourly.used"`
	DailyUsed    int64  `trace:"quota.daily.used"`
	MonthlyUsed  int64  `trace:"quota.monthly.used"`
	Admitted     bool   `trace:"quota.admitted"`
	DeniedScope  string `trace:"quota.denied_scope,omitempty"`
	ResetTimeUTC string `trace:"quota.reset_time,omitempty"`
}

type TraceCacheMeta struct {
	Owner    string `trace:"cache.owner"`
	Channel  string `trace:"cache.channel"`
	StyleKey string `trace:"cache.style_key,omitempty"`
	Attempts int    `trace:"cache.attempts"`
	Hit      bool   `trace:"cache.hit"`
	QRCodeID string `trace:"cache.qrcode_id,omitempty"`
}

type TraceGenerateMeta struct {
	Channel  string `trace:"qrcode.channel"`
	Owner    string `trace:"qrcode.owner,omitempty"`
	URLLen   int    `trace:"qrcode.url_length"`
	Size     int    `trace:"qrcode.style.size"`
	Level    string `trace:"qrcode.style.level"`
	Cached   bool   `trace:"qrcode.cached"`
	QRCodeID string `trace:"qrcode.id,omitempty"`
	Phase    string `trace:"qrcode.phase,omitempty"`
}

type TraceScanMeta struct {
	QRCodeID  string `trace:"scan.qrcode_id"`
	UserAgent string `trace:"scan.user_agent,omitempty"`
	Referrer  string `trace:"scan.referrer,omitempty"`
	Tracked   bool   `trace:"scan.tracked"`
}

type TraceAPIKeyMeta struct {
	Op       string `trace:"op"`
	APIKeyID string `trace:"api_key.id,omitempty"`
	UserID   string `trace:"user.id,omitempty"`
	Count    int    `trace:"result.count,omitempty"`
	Affected int64  `trace:"mongo.affected_count,omitempty"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceErrorMeta struct {
	Code       int     `trace:"error.code"`
	Message    string  `trace:"error.message"`
	Detail     string  `trace:"error.detail"`
	Status     int     `trace:"http.status_code"`
	DurationMs float64 `trace:"response.latency_ms"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"response.message"`
	DurationMs float64 `trace:"response.latency_ms"`
	Data       string  `trace:"response.data_preview"`
}

type TraceHttpServerMeta struct {
	// request side
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	UrlPath           string `trace:"http.request.path"`
	UrlScheme         string `trace:"http.request.url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	SpanTraceID       string `trace:"span.trace_id"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
}
