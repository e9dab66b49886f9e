package config

import (
	"courtbook/pkg/client"
	"courtbook/pkg/logger"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	StorageBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	LockBackend   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HoldTTL           time.Duration
	OperationTimeout  time.Duration
	LockTTL           time.Duration
	LockRetryAttempts int
	LockRetryDelay    time.Duration
	SweepInterval     time.Duration

	SlotDuration   time.Duration
	SlotStartHours []int
	TimeZone       string
	Location       *time.Location

	PaymentBaseURL string
	PaymentTimeout time.Duration

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaEventsTopic  string
	KafkaDLQTopic     string
	KafkaMaxAttempts  int
	KafkaBatchTimeout time.Duration
	KafkaWriteTimeout time.Duration
	KafkaRequiredAcks int
	KafkaCompression  string
	KafkaAsync        bool
	KafkaLogPublishes bool

	// Now is the clock every time-based decision reads. Tests replace it.
	Now func() time.Time

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		StorageBackend: getEnvStr(EnvStorageBackend, DefaultStorageBackend),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		LockBackend:   getEnvStr(EnvLockBackend, DefaultLockBackend),
		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HoldTTL:           getEnvDuration(EnvHoldTTL, DefaultHoldTTL),
		OperationTimeout:  getEnvDuration(EnvOperationTimeout, DefaultOperationTimeout),
		LockTTL:           getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockRetryAttempts: getEnvNum(EnvLockRetryAttempts, DefaultLockRetryAttempts),
		LockRetryDelay:    getEnvDuration(EnvLockRetryDelay, DefaultLockRetryDelay),
		SweepInterval:     getEnvDuration(EnvSweepInterval, DefaultSweepInterval),

		SlotDuration:   getEnvDuration(EnvSlotDuration, DefaultSlotDuration),
		SlotStartHours: getEnvNumList(EnvSlotStartHours, DefaultSlotStartHours),
		TimeZone:       getEnvStr(EnvTimeZone, DefaultTimeZone),

		PaymentBaseURL: getEnvStr(EnvPaymentBaseURL, ""),
		PaymentTimeout: getEnvDuration(EnvPaymentTimeout, DefaultPaymentTimeout),

		KafkaEnabled:      getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBrokers:      getEnvList(EnvKafkaBrokers, DefaultKafkaBrokers),
		KafkaEventsTopic:  getEnvStr(EnvKafkaEventsTopic, DefaultKafkaEventsTopic),
		KafkaDLQTopic:     getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		KafkaMaxAttempts:  getEnvNum(EnvKafkaMaxAttempts, DefaultKafkaMaxAttempts),
		KafkaBatchTimeout: getEnvDuration(EnvKafkaBatchTimeout, DefaultKafkaBatchTimeout),
		KafkaWriteTimeout: getEnvDuration(EnvKafkaWriteTimeout, DefaultKafkaWriteTimeout),
		KafkaRequiredAcks: getEnvNum(EnvKafkaRequiredAcks, DefaultKafkaRequiredAcks),
		KafkaCompression:  getEnvStr(EnvKafkaCompression, DefaultKafkaCompression),
		KafkaAsync:        getEnvBool(EnvKafkaAsync, DefaultKafkaAsync),
		KafkaLogPublishes: getEnvBool(EnvKafkaLogPublishes, DefaultKafkaLogPublishes),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
		Now:    time.Now,
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

// Validate checks every setting and reports all problems at once. On success
// it resolves Location from TimeZone.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageBackend {
	case StorageMemory, StorageMongo:
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [%s %s], got: %s", StorageMemory, StorageMongo, cfg.StorageBackend))
	}

	switch cfg.LockBackend {
	case LockMemory, LockRedis, LockMongo:
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [%s %s %s], got: %s", LockMemory, LockRedis, LockMongo, cfg.LockBackend))
	}
	if cfg.LockBackend == LockMongo && cfg.StorageBackend != StorageMongo {
		errors = append(errors, "LockBackend mongo requires StorageBackend mongo")
	}
	if cfg.LockBackend == LockRedis && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when LockBackend is redis")
	}

	if cfg.StorageBackend == StorageMongo || cfg.LockBackend == LockMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.HoldTTL <= 0 {
		errors = append(errors, fmt.Sprintf("HoldTTL must be positive, got: %s", cfg.HoldTTL))
	}
	if cfg.OperationTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("OperationTimeout must be positive, got: %s", cfg.OperationTimeout))
	}
	// A failed operation rolls back under a fresh OperationTimeout while
	// still holding its locks.
	if cfg.LockTTL < 2*cfg.OperationTimeout {
		errors = append(errors, fmt.Sprintf("LockTTL (%s) must be at least twice OperationTimeout (%s)", cfg.LockTTL, cfg.OperationTimeout))
	}
	if cfg.LockRetryAttempts < 1 {
		errors = append(errors, fmt.Sprintf("LockRetryAttempts must be at least 1, got: %d", cfg.LockRetryAttempts))
	}
	if cfg.LockRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("LockRetryDelay cannot be negative, got: %s", cfg.LockRetryDelay))
	}
	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}

	if cfg.SlotDuration < 15*time.Minute || cfg.SlotDuration > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("SlotDuration must be between 15m and 24h, got: %s", cfg.SlotDuration))
	}
	if len(cfg.SlotStartHours) == 0 {
		errors = append(errors, "SlotStartHours must list at least one hour")
	}
	for i, h := range cfg.SlotStartHours {
		if h < 0 || h > 23 {
			errors = append(errors, fmt.Sprintf("SlotStartHours must be between 0 and 23, got: %d", h))
			continue
		}
		if i > 0 && h <= cfg.SlotStartHours[i-1] {
			errors = append(errors, fmt.Sprintf("SlotStartHours must be strictly increasing, got: %v", cfg.SlotStartHours))
			break
		}
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("TimeZone is not a known location: %s", cfg.TimeZone))
	}

	if cfg.PaymentBaseURL != "" {
		if u, err := url.Parse(cfg.PaymentBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("PaymentBaseURL must be an http(s) URL, got: %s", cfg.PaymentBaseURL))
		}
	}
	if cfg.PaymentTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PaymentTimeout must be positive, got: %s", cfg.PaymentTimeout))
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			errors = append(errors, "KafkaBrokers must list at least one broker when Kafka is enabled")
		}
		if cfg.KafkaEventsTopic == "" {
			errors = append(errors, "KafkaEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaDLQTopic != "" && cfg.KafkaDLQTopic == cfg.KafkaEventsTopic {
			errors = append(errors, "KafkaDLQTopic must differ from KafkaEventsTopic")
		}
		if cfg.KafkaMaxAttempts <= 0 {
			errors = append(errors, fmt.Sprintf("KafkaMaxAttempts must be positive, got: %d", cfg.KafkaMaxAttempts))
		}
		if cfg.KafkaWriteTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("KafkaWriteTimeout must be positive, got: %s", cfg.KafkaWriteTimeout))
		}
		if cfg.KafkaRequiredAcks < -1 || cfg.KafkaRequiredAcks > 1 {
			errors = append(errors, fmt.Sprintf("KafkaRequiredAcks must be -1, 0, or 1, got: %d", cfg.KafkaRequiredAcks))
		}
		switch cfg.KafkaCompression {
		case "none", "gzip", "snappy", "lz4", "zstd":
		default:
			errors = append(errors, fmt.Sprintf("KafkaCompression must be one of [none gzip snappy lz4 zstd], got: %s", cfg.KafkaCompression))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	cfg.Location = loc
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_backend", cfg.StorageBackend,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"lock_backend", cfg.LockBackend,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_ttl", cfg.HoldTTL,
		"operation_timeout", cfg.OperationTimeout,
		"lock_ttl", cfg.LockTTL,
		"lock_retry_attempts", cfg.LockRetryAttempts,
		"lock_retry_delay", cfg.LockRetryDelay,
		"sweep_interval", cfg.SweepInterval,
		"slot_duration", cfg.SlotDuration,
		"slot_start_hours", cfg.SlotStartHours,
		"time_zone", cfg.TimeZone,
		"payment_gateway_set", cfg.PaymentBaseURL != "",
		"payment_timeout", cfg.PaymentTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_events_topic", cfg.KafkaEventsTopic,
		"kafka_dlq_topic", cfg.KafkaDLQTopic,
		"kafka_required_acks", cfg.KafkaRequiredAcks,
		"kafka_compression", cfg.KafkaCompression,
		"kafka_async", cfg.KafkaAsync,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value and drops empty items.
func getEnvList(key, fallback string) []string {
	value := getEnvStr(key, fallback)
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvNumList parses a comma separated list of integers. A malformed value
// falls back to the default list as a whole.
func getEnvNumList(key, fallback string) []int {
	if list, err := parseNumList(os.Getenv(key)); err == nil && len(list) > 0 {
		return list
	}
	list, _ := parseNumList(fallback)
	return list
}

func parseNumList(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Clock returns the current time in UTC.
func (cfg *Config) Clock() time.Time {
	if cfg.Now == nil {
		return time.Now().UTC()
	}
	return cfg.Now().UTC()
}

// Loc is the zone slot dates and wall-clock times are interpreted in.
func (cfg *Config) Loc() *time.Location {
	if cfg.Location == nil {
		return time.UTC
	}
	return cfg.Location
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
