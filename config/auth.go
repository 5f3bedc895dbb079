package config

type Auth struct {
	JwtSecret     string `mapstructure:"JWT_SECRET" json:"jwtSecret" yaml:"jwtSecret"`
	TokenTTLHours int64  `mapstructure:"TOKEN_TTL_HOURS" json:"tokenTTLHours" yaml:"tokenTTLHours"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST" json:"bcryptCost" yaml:"bcryptCost"`
}
