package config

// QuotaLimits 單一通道的滾動視窗上限，0 代表使用預設值
type QuotaLimits struct {
	Hourly  int64 `mapstructure:"HOURLY" json:"hourly" yaml:"hourly"`
	Daily   int64 `mapstructure:"DAILY" json:"daily" yaml:"daily"`
	Monthly int64 `mapstructure:"MONTHLY" json:"monthly" yaml:"monthly"`
}

type Quota struct {
	APIKey  QuotaLimits `mapstructure:"APIKEY" json:"apikey" yaml:"apikey"`
	Session QuotaLimits `mapstructure:"SESSION" json:"session" yaml:"session"`
}
