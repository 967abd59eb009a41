package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// AuthDomain is the public host of the chat app; notifications open https://{AuthDomain}.
	AuthDomain     string `mapstructure:"auth_domain" yaml:"auth_domain"`
	HistoryLimit   int    `mapstructure:"history_limit" yaml:"history_limit"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Vision    VisionConfig    `mapstructure:"vision" yaml:"vision"`
	FCM       FCMConfig       `mapstructure:"fcm" yaml:"fcm"`
	Functions FunctionsConfig `mapstructure:"functions" yaml:"functions"`
}

// StorageConfig describes the object bucket.
type StorageConfig struct {
	Bucket     string `mapstructure:"bucket" yaml:"bucket"`
	Root       string `mapstructure:"root" yaml:"root"`
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir"`
}

// VisionConfig configures the safe-search classifier. Moderation is disabled without an API key.
type VisionConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FCMConfig configures push delivery. Fan-out is disabled without a server key.
type FCMConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	ServerKey string        `mapstructure:"server_key" yaml:"server_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FunctionsConfig bounds every event handler invocation.
type FunctionsConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries" yaml:"max_retries"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "friendlychat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "friendlychat",
		JWTAudience:       "friendlychat",
		AuthDomain:        "localhost:8080",
		HistoryLimit:      12,
		MaxUploadBytes:    10 << 20,
		Storage: StorageConfig{
			Bucket:     "friendlychat",
			Root:       "data/objects",
			ScratchDir: "",
		},
		Vision: VisionConfig{
			Endpoint: "https://vision.googleapis.com",
			Timeout:  30 * time.Second,
		},
		FCM: FCMConfig{
			Endpoint: "https://fcm.googleapis.com",
			Timeout:  10 * time.Second,
		},
		Functions: FunctionsConfig{
			Timeout:    time.Minute,
			MaxRetries: 3,
		},
	}
}

// UpdateFrom overwrites non-zero top-level values from other config into receiver.
// It is used to apply command line overrides.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
