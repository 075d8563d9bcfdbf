package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/config"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs the group-consumer loop and dispatches per-topic handlers.
// A message whose handler keeps failing after the retry budget goes to the
// dead letter topic and the offset is committed; a poison message never
// wedges the partition.
type Consumer struct {
	reader     ReaderInterface
	cfg        config.KafkaConfig
	logger     logging.Logger
	deadLetter *Producer

	handlers map[string]common.MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer builds a Consumer subscribed to the configured topics.
func NewConsumer(cfg config.KafkaConfig, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "group id required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: []string{cfg.ExtractTopic, cfg.InvalidateTopic},
		StartOffset: startOffset,
	})

	var deadLetter *Producer
	if cfg.DeadLetterTopic != "" {
		p, err := NewProducer(cfg.Brokers, logger)
		if err != nil {
			reader.Close()
			return nil, err
		}
		deadLetter = p
	}

	return &Consumer{
		reader:     reader,
		cfg:        cfg,
		logger:     logger.Named("consumer"),
		deadLetter: deadLetter,
		handlers:   make(map[string]common.MessageHandler),
	}, nil
}

// NewConsumerWithReader wires a custom reader and dead letter producer, used
// by tests.
func NewConsumerWithReader(reader ReaderInterface, cfg config.KafkaConfig, deadLetter *Producer, logger logging.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		cfg:        cfg,
		logger:     logger.Named("consumer"),
		deadLetter: deadLetter,
		handlers:   make(map[string]common.MessageHandler),
	}
}

// Subscribe registers the handler for a topic.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started", logging.String("group", c.cfg.GroupID))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}

		msg := common.Message{
			Topic:     m.Topic,
			Key:       m.Key,
			Value:     m.Value,
			Timestamp: m.Time,
			Headers:   make(map[string]string, len(m.Headers)),
		}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()
		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
			c.commit(ctx, m)
			continue
		}

		c.handleWithRetry(ctx, msg, handler)
		c.commit(ctx, m)
	}
}

// handleWithRetry runs the handler with exponential backoff, then routes to
// the dead letter topic once the retry budget is spent.
func (c *Consumer) handleWithRetry(ctx context.Context, msg common.Message, handler common.MessageHandler) {
	err := handler(ctx, msg)
	if err == nil {
		return
	}

	backoff := c.cfg.RetryBackoff
	if backoff == 0 {
		backoff = time.Second
	}
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err = handler(ctx, msg); err == nil {
			return
		}
		backoff *= 2
	}

	c.logger.Error("message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int("retries", c.cfg.MaxRetries),
		logging.Err(err))

	if c.deadLetter != nil && c.cfg.DeadLetterTopic != "" {
		headers := make(map[string]string, len(msg.Headers)+2)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers["original_topic"] = msg.Topic
		headers["error_message"] = err.Error()

		dlErr := c.deadLetter.Publish(ctx, common.Message{
			Topic:   c.cfg.DeadLetterTopic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: headers,
		})
		if dlErr != nil {
			c.logger.Error("failed to publish to dead letter topic", logging.Err(dlErr))
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("commit failed", logging.Err(err))
	}
}

// Close stops the loop and releases the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	if c.deadLetter != nil {
		c.deadLetter.Close()
	}
	c.logger.Info("kafka consumer closed")
	return err
}
