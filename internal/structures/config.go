package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	// Backend is either "redis" (sorted sets on a Redis server) or "file"
	// (in-memory store with periodic compressed snapshots).
	Backend string      `yaml:"backend" validate:"required|in:redis,file"`
	Redis   RedisConfig `yaml:"redis"`
	// FilePath is the directory holding one snapshot file per user.
	FilePath     string        `yaml:"filePath"`
	SaveInterval time.Duration `yaml:"saveInterval"`
	// CompressionLevel is the snapshot zstd level (1-22), 0 for default.
	CompressionLevel int `yaml:"compressionLevel"`
}

type ThresholdsConfig struct {
	// Glucose values strictly below Low are classified as a low episode,
	// values at or above High as a high episode. Units are mg/dL.
	Low  int `yaml:"low" validate:"required|min:1"`
	High int `yaml:"high" validate:"required|min:1"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type WebhooksConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// MaxCalls caps the total number of outbound deliveries over the
	// process lifetime; 0 means unlimited.
	MaxCalls int64 `yaml:"maxCalls"`
	// Sync delivers webhooks on the caller's goroutine. Used by tests.
	Sync bool `yaml:"sync"`
}

type AuthConfig struct {
	// Token grants access as the default user.
	Token string `yaml:"token" validate:"required"`
	// Tokens maps additional bearer tokens to user names.
	Tokens map[string]string `yaml:"tokens"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer"`
	Logger     LoggerConfig     `yaml:"logger"`
	Storage    StorageConfig    `yaml:"storage"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Timezone   string           `yaml:"timezone"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Webhooks   WebhooksConfig   `yaml:"webhooks"`
	Auth       AuthConfig       `yaml:"auth"`
}
