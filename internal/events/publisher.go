package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"meddispense/m/domain"
	"meddispense/m/internal/inventory"
)

// Publisher mirrors queued hardware commands to an external sink.
type Publisher interface {
	Publish(ctx context.Context, queue inventory.QueueName, entry domain.QueueEntry) error
	Close() error
}

// NopPublisher discards everything. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, inventory.QueueName, domain.QueueEntry) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// Topics maps each queue to the Kafka topic that mirrors it.
type Topics struct {
	Dispense string
	Restock  string
}

// KafkaPublisher implements Publisher using a synchronous Kafka producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topics   Topics
	logger   *zap.Logger
}

// NewKafkaPublisher dials the brokers and returns a ready publisher.
func NewKafkaPublisher(brokers []string, clientID string, topics Topics, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topics, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topics Topics, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topics: topics, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, queue inventory.QueueName, entry domain.QueueEntry) error {
	topic, err := p.topicFor(queue)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(entry.ID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(queue)},
			{Key: []byte("timestamp"), Value: []byte(strconv.FormatInt(entry.Timestamp, 10))},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.logger.Debug("queue entry mirrored",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("entry_id", entry.ID.String()),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func (p *KafkaPublisher) topicFor(queue inventory.QueueName) (string, error) {
	switch queue {
	case inventory.DispenseQueue:
		return p.topics.Dispense, nil
	case inventory.RestockQueue:
		return p.topics.Restock, nil
	default:
		return "", fmt.Errorf("no topic for queue %q", queue)
	}
}
