package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// APIBase is the base URL of the policy API, e.g. "https://api.example.com".
	APIBase string `koanf:"api_base" validate:"required,http_url"`

	// APIToken is the bearer token sent on policy API requests. Optional.
	APIToken string `koanf:"api_token"`

	// AcmeTokenFile points at a JSON file of static ACME challenge tokens.
	AcmeTokenFile string `koanf:"acme_token_file" validate:"omitempty,file"`

	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// CacheTTL is the policy cache entry lifetime in seconds.
	CacheTTL int `koanf:"cache_ttl" validate:"required,gte=1"`

	// DefaultOrigin receives traffic for hosts without a usable policy.
	DefaultOrigin string `koanf:"default_origin" validate:"required,http_url"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// MaxConns caps concurrent accepted connections; 0 means unlimited.
	MaxConns int `koanf:"max_conns" validate:"gte=0"`

	// Port is the network port the edge server will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// ProxyTimeout bounds a proxied upstream exchange, in seconds.
	ProxyTimeout int `koanf:"proxy_timeout" validate:"required,gte=1"`

	// ResolveTimeout bounds a single policy API lookup, in seconds.
	ResolveTimeout int `koanf:"resolve_timeout" validate:"required,gte=1"`
}

// envLoader loads environment variables with the prefix "EDGE_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "EDGE_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "EDGE_")), value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	k.Load(structs.Provider(AppConfig{
		CacheSize:      1000,
		CacheTTL:       60,
		Env:            "prod",
		LogLevel:       "info",
		Port:           8080,
		ProxyTimeout:   30,
		ResolveTimeout: 10,
	}, "koanf"), nil)

	err := envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
