package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Listen is the host:port the HTTP bridge binds to.
	Listen string `koanf:"listen" validate:"required,host_port"`

	// DataPath is the bbolt file holding settings, lists and statistics.
	// ":memory:" keeps state in process only.
	DataPath string `koanf:"data_path" validate:"required"`

	// ClassifierURL is the base URL of the remote risk-scoring service.
	ClassifierURL string `koanf:"classifier_url" validate:"required,url"`

	// ClassifierTimeout bounds a single classifier call.
	ClassifierTimeout time.Duration `koanf:"classifier_timeout" validate:"gt=0"`

	// ClassifierRPS limits outbound classifier calls per second. 0 disables the limit.
	ClassifierRPS float64 `koanf:"classifier_rps" validate:"gte=0"`
	ClassifierBurst int   `koanf:"classifier_burst" validate:"gte=1"`

	// CacheSize caps the number of URLs held in the threat cache.
	CacheSize int `koanf:"cache_size" validate:"gte=1"`

	// TabCacheSize caps the number of tabs whose latest decision is remembered.
	TabCacheSize int `koanf:"tab_cache_size" validate:"gte=1"`

	// NoticeQueue is the per-tab notice backlog kept for the UI.
	NoticeQueue int `koanf:"notice_queue" validate:"gte=1"`

	// InternalHosts are host[:port] values never sent to the classifier,
	// typically the dashboard the extension ships with.
	InternalHosts []string `koanf:"internal_hosts"`

	// SeedFile is an optional YAML file of whitelist/blacklist domains
	// imported at startup.
	SeedFile string `koanf:"seed_file"`

	// Metrics exposes /metrics on the bridge when true.
	Metrics bool `koanf:"metrics"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:               "prod",
	LogLevel:          "info",
	Listen:            "127.0.0.1:8787",
	DataPath:          "/var/lib/navguard/state.db",
	ClassifierURL:     "http://localhost:8000",
	ClassifierTimeout: 10 * time.Second,
	ClassifierRPS:     0,
	ClassifierBurst:   4,
	CacheSize:         4096,
	TabCacheSize:      512,
	NoticeQueue:       32,
	InternalHosts:     []string{"localhost:3000", "localhost:3001"},
	Metrics:           true,
}

// validHostPort validates a "host:port" value. The host may be empty
// (all interfaces), an IP literal or a hostname; the port must be 1..65535.
func validHostPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if strings.ContainsAny(host, " /") {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// envLoader loads environment variables with the prefix "GUARD_".
// Keys are lowercased with the prefix removed; values containing spaces or
// commas become slices. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "GUARD_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "GUARD_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "host_port" rule.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("host_port", validHostPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
