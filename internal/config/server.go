package config

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc"`
}

type HTTPConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	BodyLimit   string   `mapstructure:"body_limit" yaml:"body_limit"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type GRPCConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type JWTConfig struct {
	// Secret verifies HS256 bearer tokens. Empty disables user authentication.
	Secret string `mapstructure:"secret" yaml:"secret"`
	Issuer string `mapstructure:"issuer" yaml:"issuer"`
}
