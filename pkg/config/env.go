package config

const (
	EnvStorageBackend = "STORAGE_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvLockBackend   = "LOCK_BACKEND"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldTTL           = "HOLD_TTL"
	EnvOperationTimeout  = "OPERATION_TIMEOUT"
	EnvLockTTL           = "LOCK_TTL"
	EnvLockRetryAttempts = "LOCK_RETRY_ATTEMPTS"
	EnvLockRetryDelay    = "LOCK_RETRY_DELAY"
	EnvSweepInterval     = "SWEEP_INTERVAL"

	EnvSlotDuration   = "SLOT_DURATION"
	EnvSlotStartHours = "SLOT_START_HOURS"
	EnvTimeZone       = "TIME_ZONE"

	EnvPaymentBaseURL = "PAYMENT_BASE_URL"
	EnvPaymentTimeout = "PAYMENT_TIMEOUT"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaEventsTopic  = "KAFKA_TOPIC_EVENTS"
	EnvKafkaDLQTopic     = "KAFKA_TOPIC_EVENTS_DLQ"
	EnvKafkaMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaWriteTimeout = "KAFKA_PRODUCER_WRITE_TIMEOUT"
	EnvKafkaRequiredAcks = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaAsync        = "KAFKA_PRODUCER_ASYNC"
	EnvKafkaLogPublishes = "KAFKA_LOG_PUBLISHES"
)
