package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendMemory   = "memory"
)

type Config struct {
	ServicePort      string
	MetricsPort      string
	Environment      string
	PostgreSQLConfig PostgreSQLConfig
	LedgerConfig     LedgerConfig
	VNPayConfig      VNPayConfig
	FrontendConfig   FrontendConfig
	KafkaConfig      KafkaConfig
	TracingConfig    TracingConfig
	JWTSecret        string
}

type PostgreSQLConfig struct {
	DBHost     string
	DBName     string
	DBPort     string
	DBUsername string
	DBPassword string
}

type LedgerConfig struct {
	Backend        string
	StoreTimeout   time.Duration
	OutboxInterval time.Duration
}

// VNPayConfig holds the merchant credentials issued by the provider. HashSecret
// must never be logged.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PaymentURL string
	ReturnURL  string
}

type FrontendConfig struct {
	ResultURL string
}

type KafkaConfig struct {
	BrokerAddress string
	BrokerTopic   string
}

type TracingConfig struct {
	CollectorHost string
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		ServicePort: getEnv("SERVICE_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "8081"),
		Environment: getEnv("ENVIRONMENT", "development"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:     os.Getenv("DB_HOST"),
			DBName:     os.Getenv("DB_NAME"),
			DBPort:     os.Getenv("DB_PORT"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		LedgerConfig: LedgerConfig{
			Backend:        strings.ToLower(getEnv("LEDGER_BACKEND", LedgerBackendPostgres)),
			StoreTimeout:   getDuration("LEDGER_STORE_TIMEOUT", 3*time.Second),
			OutboxInterval: getDuration("OUTBOX_INTERVAL", 30*time.Second),
		},
		VNPayConfig: VNPayConfig{
			TmnCode:    os.Getenv("VNPAY_TMN_CODE"),
			HashSecret: os.Getenv("VNPAY_HASH_SECRET"),
			PaymentURL: getEnv("VNPAY_PAYMENT_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  os.Getenv("VNPAY_RETURN_URL"),
		},
		FrontendConfig: FrontendConfig{
			ResultURL: os.Getenv("FRONTEND_RESULT_URL"),
		},
		KafkaConfig: KafkaConfig{
			BrokerAddress: os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:   os.Getenv("BROKER_TOPIC"),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	return &conf
}

// Validate reports every required setting that is missing. The returned error
// never includes secret values.
func (c *Config) Validate() error {
	var errList []error

	if c.VNPayConfig.HashSecret == "" {
		errList = append(errList, errors.New("VNPAY_HASH_SECRET is required"))
	}
	if c.FrontendConfig.ResultURL == "" {
		errList = append(errList, errors.New("FRONTEND_RESULT_URL is required"))
	}
	if c.JWTSecret == "" {
		errList = append(errList, errors.New("JWT_SECRET is required"))
	}

	switch c.LedgerConfig.Backend {
	case LedgerBackendMemory:
	case LedgerBackendPostgres:
		if c.PostgreSQLConfig.DBHost == "" || c.PostgreSQLConfig.DBName == "" {
			errList = append(errList, errors.New("DB_HOST and DB_NAME are required for the postgres ledger"))
		}
	default:
		errList = append(errList, errors.New("LEDGER_BACKEND must be postgres or memory"))
	}

	if c.LedgerConfig.StoreTimeout <= 0 {
		errList = append(errList, errors.New("LEDGER_STORE_TIMEOUT must be positive"))
	}
	if c.LedgerConfig.OutboxInterval <= 0 {
		errList = append(errList, errors.New("OUTBOX_INTERVAL must be positive"))
	}

	return errors.Join(errList...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
