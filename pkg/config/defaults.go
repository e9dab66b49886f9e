package config

import "time"

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	LockMemory = "memory"
	LockRedis  = "redis"
	LockMongo  = "mongo"
)

const (
	DefaultStorageBackend = StorageMemory

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "courtbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultLockBackend = LockMemory
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultHoldTTL           = 10 * time.Minute
	DefaultOperationTimeout  = 5 * time.Second
	DefaultLockTTL           = 10 * time.Second
	DefaultLockRetryAttempts = 20
	DefaultLockRetryDelay    = 10 * time.Millisecond
	DefaultSweepInterval     = 1 * time.Minute

	DefaultSlotDuration   = 2 * time.Hour
	DefaultSlotStartHours = "8,10,12,14,16,18,20"
	DefaultTimeZone       = "UTC"

	DefaultPaymentTimeout = 10 * time.Second

	DefaultKafkaEnabled      = false
	DefaultKafkaBrokers      = "localhost:9092"
	DefaultKafkaEventsTopic  = "courtbook.reservations"
	DefaultKafkaDLQTopic     = "courtbook.reservations.dlq"
	DefaultKafkaMaxAttempts  = 3
	DefaultKafkaBatchTimeout = 10 * time.Millisecond
	DefaultKafkaWriteTimeout = 5 * time.Second
	DefaultKafkaRequiredAcks = -1
	DefaultKafkaCompression  = "snappy"
	DefaultKafkaAsync        = false
	DefaultKafkaLogPublishes = true

	DefaultPaginationLimit = 100
)
