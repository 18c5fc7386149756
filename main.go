package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-mrz-verifier/logging"
	redis "go-mrz-verifier/redis"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`

	// JwtPrivateKeyPath is optional; without it no attestation JWTs are
	// issued and the service only answers valid/invalid.
	JwtPrivateKeyPath string `json:"jwt_private_key_path,omitempty"`
	IssuerId          string `json:"issuer_id,omitempty"`
	JwtValidity       uint   `json:"jwt_validity_seconds,omitempty"`

	// WebhookUrl is optional; when set, scan results are pushed there.
	WebhookUrl string `json:"webhook_url,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

// EnvOverrides lets secrets come from the environment instead of the config
// file, prefixed MRZV_ (e.g. MRZV_REDIS_PASSWORD).
type EnvOverrides struct {
	RedisPassword     string `envconfig:"REDIS_PASSWORD"`
	JwtPrivateKeyPath string `envconfig:"JWT_PRIVATE_KEY_PATH"`
	WebhookUrl        string `envconfig:"WEBHOOK_URL"`
}

const defaultJwtValidity = time.Hour

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "please provide a config path using the --config flag")
		os.Exit(1)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(config.LogLevel, config.LogFormat)
	slog.Info("Using config", "path", *configPath)
	slog.Info("Hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	tokenStorage, err := createTokenStorage(&config)
	if err != nil {
		slog.Error("failed to instantiate token storage", "error", err)
		os.Exit(1)
	}

	serverState := ServerState{
		tokenStorage: tokenStorage,
	}

	if config.JwtPrivateKeyPath != "" {
		validity := defaultJwtValidity
		if config.JwtValidity > 0 {
			validity = time.Duration(config.JwtValidity) * time.Second
		}
		jwtCreator, err := NewScanJwtCreator(config.JwtPrivateKeyPath, config.IssuerId, validity)
		if err != nil {
			slog.Error("failed to instantiate jwt creator", "error", err)
			os.Exit(1)
		}
		serverState.jwtCreator = jwtCreator
	} else {
		slog.Info("No jwt private key configured, scan attestation disabled")
	}

	if config.WebhookUrl != "" {
		serverState.notifier = NewWebhookNotifier(config.WebhookUrl)
		slog.Info("Result webhook enabled", "url", config.WebhookUrl)
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)
	if err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	var overrides EnvOverrides
	if err := envconfig.Process("mrzv", &overrides); err != nil {
		slog.Warn("failed to process environment overrides", "error", err)
		return
	}

	if overrides.RedisPassword != "" {
		config.RedisConfig.Password = overrides.RedisPassword
		config.RedisSentinelConfig.Password = overrides.RedisPassword
	}
	if overrides.JwtPrivateKeyPath != "" {
		config.JwtPrivateKeyPath = overrides.JwtPrivateKeyPath
	}
	if overrides.WebhookUrl != "" {
		config.WebhookUrl = overrides.WebhookUrl
	}
}

func createTokenStorage(config *Config) (TokenStorage, error) {
	if config.StorageType == "redis" {
		slog.Info("Using redis token storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisTokenStorage(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		slog.Info("Using redis sentinel storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisTokenStorage(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" {
		slog.Info("Using in memory storage")
		return NewInMemoryTokenStorage(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
