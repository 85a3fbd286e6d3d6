package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageS3     = "s3"
)

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".microwin/data"`
	// Watch pushes changes made to BaseDir by other processes (local only).
	Watch bool `envconfig:"STORAGE_WATCH" default:"true"`
	// S3 settings (used when Type == "s3")
	S3Bucket           string        `envconfig:"S3_BUCKET"`
	S3Prefix           string        `envconfig:"S3_PREFIX" default:"microwin/"`
	S3Region           string        `envconfig:"S3_REGION" default:"ap-northeast-1"`
	S3Endpoint         string        `envconfig:"S3_ENDPOINT"`
	RemotePollInterval time.Duration `envconfig:"REMOTE_POLL_INTERVAL" default:"5s"`
}

type DecomposeEnv struct {
	ClaudeWorkDir  string `envconfig:"CLAUDE_WORK_DIR" default:"."`
	ClaudeMaxTurns int    `envconfig:"CLAUDE_MAX_TURNS" default:"1"`
	// Timeout bounds a decomposition request at the RPC boundary; 0 disables it.
	Timeout   time.Duration `envconfig:"DECOMPOSE_TIMEOUT" default:"0"`
	RedactPII bool          `envconfig:"REDACT_PII" default:"true"`
}

type OrchestratorEnv struct {
	SaveRetries      int           `envconfig:"SAVE_RETRIES" default:"2"`
	SaveRetryBackoff time.Duration `envconfig:"SAVE_RETRY_BACKOFF" default:"200ms"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@localhost"`
}

func (e *VAPIDEnv) Configured() bool {
	return e != nil && e.VAPIDPublicKey != "" && e.VAPIDPrivateKey != ""
}

type Env struct {
	BaseEnv
	StorageEnv
	DecomposeEnv
	OrchestratorEnv
	VAPIDEnv
}

const namespace = "MICROWIN"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Type {
	case StorageMemory, StorageLocal:
	case StorageS3:
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required when %s_STORAGE_TYPE=s3", namespace, namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	if e.SaveRetries < 0 {
		return fmt.Errorf("%s_SAVE_RETRIES must not be negative", namespace)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func (e *BaseEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}
