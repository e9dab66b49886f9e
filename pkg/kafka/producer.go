package kafka

import (
	"context"
	"courtbook/pkg/logger"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Publisher is the part of Producer the domain code depends on.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// ProducerMiddleware wraps every Publish call. next sends the message on.
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

type ProducerConfig struct {
	Brokers  []string
	Topic    string
	DLQTopic string

	MaxAttempts  int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	// RequiredAcks is -1 for all in-sync replicas, 1 for the leader, 0 for none.
	RequiredAcks int
	Compression  string
	Async        bool
}

var compressionCodecs = map[string]compress.Compression{
	"none":   compress.None,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: at least one broker is required", ErrInvalidConfig)
	}
	for i, b := range c.Brokers {
		if b == "" {
			return fmt.Errorf("%w: broker %d is empty", ErrInvalidConfig, i)
		}
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidConfig)
	}
	if c.DLQTopic == c.Topic {
		return fmt.Errorf("%w: dead letter topic must differ from %s", ErrInvalidConfig, c.Topic)
	}
	if c.MaxAttempts <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: max attempts and write timeout must be positive", ErrInvalidConfig)
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, c.Compression)
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("%w: required acks must be -1, 0 or 1, got %d", ErrInvalidConfig, c.RequiredAcks)
	}
	return nil
}

// Producer publishes events to one topic. Messages are hashed on their key,
// so all events of one slot land on one partition in publish order. A failed
// write is copied to the dead letter topic when one is configured.
type Producer struct {
	cfg    ProducerConfig
	log    *logger.Logger
	writer *kafka.Writer
	dlq    *kafka.Writer

	mu     sync.RWMutex
	chain  []ProducerMiddleware
	closed bool
}

func NewProducer(cfg ProducerConfig, log *logger.Logger) (*Producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Producer{cfg: cfg, log: log}
	p.writer = p.newWriter(cfg.Topic, kafka.RequiredAcks(cfg.RequiredAcks))
	p.writer.Async = cfg.Async
	if cfg.DLQTopic != "" {
		p.dlq = p.newWriter(cfg.DLQTopic, kafka.RequireAll)
	}
	return p, nil
}

func (p *Producer) newWriter(topic string, acks kafka.RequiredAcks) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(p.cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Compression:  compressionCodecs[p.cfg.Compression],
		MaxAttempts:  p.cfg.MaxAttempts,
		BatchTimeout: p.cfg.BatchTimeout,
		WriteTimeout: p.cfg.WriteTimeout,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			p.log.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer", "topic", topic)
		}),
	}
}

func (p *Producer) Use(mw ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain = append(p.chain, mw)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed, chain := p.closed, p.chain
	p.mu.RUnlock()
	if closed {
		return ErrProducerClosed
	}

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.cfg.Topic

	return compose(chain, p.write)(ctx, msg)
}

// compose wraps send so that chain[0] runs first.
func compose(chain []ProducerMiddleware, send func(context.Context, Message) error) func(context.Context, Message) error {
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], send
		send = func(ctx context.Context, msg Message) error {
			return mw(ctx, msg, next)
		}
	}
	return send
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil || p.dlq == nil {
		return err
	}
	if dlqErr := p.deadLetter(msg, err); dlqErr != nil {
		return fmt.Errorf("dead letter write failed: %v (original error: %w)", dlqErr, err)
	}
	return err
}

// deadLetter runs on its own deadline; the caller's ctx has usually just
// expired.
func (p *Producer) deadLetter(msg Message, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
	defer cancel()

	now := time.Now()
	msg.Headers = maps.Clone(msg.Headers)
	if msg.Headers == nil {
		msg.Headers = map[string]string{}
	}
	msg.Headers[headerOriginalTopic] = p.cfg.Topic
	msg.Headers[headerFailure] = cause.Error()
	msg.Headers[headerFailedAt] = now.UTC().Format(time.RFC3339)
	msg.Timestamp = now

	return p.dlq.WriteMessages(ctx, toKafkaMessage(msg))
}

func toKafkaMessage(msg Message) kafka.Message {
	out := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Time:    msg.Timestamp,
		Headers: make([]kafka.Header, 0, len(msg.Headers)),
	}
	for k, v := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// Close flushes and closes both writers. It is safe to call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlq != nil {
		if dlqErr := p.dlq.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

// LogPublishes logs the outcome of every publish.
func LogPublishes(log *logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_type", msg.EventType(),
			"event_id", msg.EventID(),
			"correlation_id", msg.CorrelationID(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Error("Failed to publish event", append(attrs, "transient", IsTransient(err), "error", err)...)
			return err
		}
		log.Info("Published event", attrs...)
		return nil
	}
}
