// Package settings turns raw config/env values into typed application settings
package settings

import (
	"errors"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageEvents/internal/events"
	"github.com/spf13/cast"
)

// Getter - то, что нужно от wbf/config; удобно подменять в тестах
type Getter interface {
	GetString(key string) string
}

const (
	AckOnReceipt = "receipt" // коммит до обработки - поведение по умолчанию
	AckOnSuccess = "success" // коммит после применения, ретраи и DLQ

	BackendFS    = "fs"
	BackendMinio = "minio"
)

type Settings struct {
	AppPort        string
	GinMode        string
	LogLevel       string
	PostgresDSN    string
	MigrationsPath string

	KafkaBroker          string
	KafkaTopic           string
	KafkaDLQTopic        string
	KafkaGroupID         string
	KafkaMaxMessageBytes int64
	AckMode              string
	MaxDeliveryAttempts  int
	ProcessTimeout       time.Duration

	StorageBackend string
	ContentDir     string
	MinioAddr      string
	MinioUser      string
	MinioPass      string
	Bucket         string

	JWTSecret      string
	JWTTTL         time.Duration
	MaxUploadBytes int64

	RedisAddr     string
	RedisPassword string
	DedupTTL      time.Duration
}

func FromConfig(cfg Getter) Settings {
	s := Settings{
		AppPort:        stringOr(cfg, "APP_PORT", "8080"),
		GinMode:        stringOr(cfg, "GIN_MODE", "release"),
		LogLevel:       stringOr(cfg, "LOG_LEVEL", "info"),
		PostgresDSN:    cfg.GetString("POSTGRES_DSN"),
		MigrationsPath: stringOr(cfg, "MIGRATIONS_PATH", "./migrations"),

		KafkaBroker:          cfg.GetString("KAFKA_BROKER"),
		KafkaTopic:           stringOr(cfg, "KAFKA_TOPIC", "image_events"),
		KafkaGroupID:         stringOr(cfg, "KAFKA_GROUPID", "image-worker"),
		KafkaMaxMessageBytes: int64(intOr(cfg, "KAFKA_MAX_MESSAGE_BYTES", 16<<20)),
		AckMode:              strings.ToLower(stringOr(cfg, "ACK_MODE", AckOnReceipt)),
		MaxDeliveryAttempts:  intOr(cfg, "MAX_DELIVERY_ATTEMPTS", 3),
		ProcessTimeout:       durationOr(cfg, "WORKER_PROCESS_TIMEOUT", 0),

		StorageBackend: strings.ToLower(stringOr(cfg, "STORAGE_BACKEND", BackendFS)),
		ContentDir:     stringOr(cfg, "CONTENT_DIR", "storage"),
		MinioAddr:      cfg.GetString("MINIO_CONTAINER_NAME"),
		MinioUser:      cfg.GetString("MINIO_USER"),
		MinioPass:      cfg.GetString("MINIO_PASS"),
		Bucket:         stringOr(cfg, "BUCKET_NAME", "default"),

		JWTSecret:      cfg.GetString("JWT_SECRET"),
		JWTTTL:         durationOr(cfg, "JWT_TTL", 30*time.Minute),
		MaxUploadBytes: int64(intOr(cfg, "MAX_UPLOAD_MB", 10)) << 20,

		RedisAddr:     cfg.GetString("REDIS_ADDR"),
		RedisPassword: cfg.GetString("REDIS_PASSWORD"),
		DedupTTL:      durationOr(cfg, "DEDUP_TTL", 24*time.Hour),
	}
	s.KafkaDLQTopic = stringOr(cfg, "KAFKA_DLQ_TOPIC", s.KafkaTopic+".dlq")

	// файл уходит в очередь целиком в base64, поэтому загрузка не может быть больше сообщения
	if limit := events.MaxRawBytes(s.KafkaMaxMessageBytes); limit < s.MaxUploadBytes {
		s.MaxUploadBytes = limit
	}

	return s
}

// ValidateAPI - без этих значений API поднимать нет смысла
func (s Settings) ValidateAPI() error {
	var errs []error
	if s.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is empty"))
	}
	if s.KafkaBroker == "" {
		errs = append(errs, errors.New("KAFKA_BROKER is empty"))
	}
	if s.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is empty"))
	}
	if s.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("KAFKA_MAX_MESSAGE_BYTES is too small to carry any upload"))
	}
	return errors.Join(errs...)
}

func (s Settings) ValidateWorker() error {
	var errs []error
	if s.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is empty"))
	}
	if s.KafkaBroker == "" {
		errs = append(errs, errors.New("KAFKA_BROKER is empty"))
	}
	if s.AckMode != AckOnReceipt && s.AckMode != AckOnSuccess {
		errs = append(errs, errors.New("ACK_MODE must be 'receipt' or 'success'"))
	}
	if s.StorageBackend != BackendFS && s.StorageBackend != BackendMinio {
		errs = append(errs, errors.New("STORAGE_BACKEND must be 'fs' or 'minio'"))
	}
	if s.MaxDeliveryAttempts < 1 {
		errs = append(errs, errors.New("MAX_DELIVERY_ATTEMPTS must be positive"))
	}
	return errors.Join(errs...)
}

func (s Settings) AckAfterSuccess() bool {
	return s.AckMode == AckOnSuccess
}

func stringOr(cfg Getter, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func intOr(cfg Getter, key string, def int) int {
	v, err := cast.ToIntE(strings.TrimSpace(cfg.GetString(key)))
	if err != nil {
		return def
	}
	return v
}

func durationOr(cfg Getter, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	v, err := cast.ToDurationE(raw)
	if err != nil {
		return def
	}
	return v
}
