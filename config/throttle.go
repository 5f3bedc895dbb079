package config

type ThrottleRule struct {
	Limit     int   `mapstructure:"LIMIT" json:"limit" yaml:"limit"`
	WindowSec int64 `mapstructure:"WINDOW_SEC" json:"windowSec" yaml:"windowSec"`
}

// Throttle 以來源 IP 計數的固定視窗限流
type Throttle struct {
	General ThrottleRule `mapstructure:"GENERAL" json:"general" yaml:"general"`
	Auth    ThrottleRule `mapstructure:"AUTH" json:"auth" yaml:"auth"`
	APIKey  ThrottleRule `mapstructure:"APIKEY" json:"apikey" yaml:"apikey"`
}
