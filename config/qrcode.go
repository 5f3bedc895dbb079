package config

type Breaker struct {
	MaxRequests  uint32  `mapstructure:"MAX_REQUESTS" json:"maxRequests" yaml:"maxRequests"`
	IntervalSec  int64   `mapstructure:"INTERVAL_SEC" json:"intervalSec" yaml:"intervalSec"`
	TimeoutSec   int64   `mapstructure:"TIMEOUT_SEC" json:"timeoutSec" yaml:"timeoutSec"`
	MinRequests  uint32  `mapstructure:"MIN_REQUESTS" json:"minRequests" yaml:"minRequests"`
	FailureRatio float64 `mapstructure:"FAILURE_RATIO" json:"failureRatio" yaml:"failureRatio"`
}

type QRCode struct {
	EncodeTimeoutMs int64 `mapstructure:"ENCODE_TIMEOUT_MS" json:"encodeTimeoutMs" yaml:"encodeTimeoutMs"`
	StoreTimeoutMs  int64 `mapstructure:"STORE_TIMEOUT_MS" json:"storeTimeoutMs" yaml:"storeTimeoutMs"`
	// true 時快取 key 只看 url + owner + channel，忽略樣式
	CacheIgnoreStyle bool    `mapstructure:"CACHE_IGNORE_STYLE" json:"cacheIgnoreStyle" yaml:"cacheIgnoreStyle"`
	LookupAttempts   int     `mapstructure:"LOOKUP_ATTEMPTS" json:"lookupAttempts" yaml:"lookupAttempts"`
	Breaker          Breaker `mapstructure:"BREAKER" json:"breaker" yaml:"breaker"`
}
