package config

import (
	"fmt"
	"time"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/refund"
)

// AppConfig is the runtime configuration of the service.
type AppConfig struct {
	ServiceName string
	GRPCAddr    string
	HTTPAddr    string
	LogLevel    string
	// Location used to compose appointment start times from date and wall clock.
	Location *time.Location

	RefundPolicy              refund.Policy
	EnforceTechnicianWorkload bool
	DefaultSlotCapacity       int
	PendingPaymentTTL         time.Duration
	PaymentCallbackSecret     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers       string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		ServiceName:               getEnv("SERVICE_NAME", "ev-service-core"),
		GRPCAddr:                  getEnv("GRPC_ADDR", ":50051"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		EnforceTechnicianWorkload: getEnvBool("ENFORCE_TECHNICIAN_WORKLOAD", true),
		DefaultSlotCapacity:       getEnvInt("DEFAULT_SLOT_CAPACITY", 2),
		PendingPaymentTTL:         getEnvDuration("PENDING_PAYMENT_TTL", 30*time.Minute),
		PaymentCallbackSecret:     getEnv("PAYMENT_CALLBACK_SECRET", ""),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		RedisDB:                   getEnvInt("REDIS_DB", 0),
		KafkaBrokers:              getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:                getEnv("KAFKA_TOPIC", "evservice.appointments.v1"),
		OutboxPollInterval:        getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:           getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OTelEnabled:               getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:              getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio:           getEnvFloat("OTEL_SAMPLING_RATIO", 1),
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	policy, err := refund.ParseTiers(getEnv("REFUND_TIERS", refund.DefaultTiers))
	if err != nil {
		return nil, fmt.Errorf("REFUND_TIERS: %w", err)
	}
	cfg.RefundPolicy = policy

	if cfg.DefaultSlotCapacity <= 0 {
		return nil, fmt.Errorf("DEFAULT_SLOT_CAPACITY must be positive, got %d", cfg.DefaultSlotCapacity)
	}
	if cfg.PendingPaymentTTL <= 0 {
		return nil, fmt.Errorf("PENDING_PAYMENT_TTL must be positive, got %s", cfg.PendingPaymentTTL)
	}
	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		cfg.OTelSampleRatio = 1
	}

	return cfg, nil
}
