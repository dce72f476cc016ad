package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fxwallet/internal/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaStream publishes transaction outcome events over one long-lived producer.
type KafkaStream struct {
	producer *kafka.Producer
	done     chan struct{}
}

func New(kafkaServers string) (*KafkaStream, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaServers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	st := &KafkaStream{producer: producer, done: make(chan struct{})}
	go st.watchDeliveries()
	return st, nil
}

// watchDeliveries logs asynchronous delivery failures.
func (st *KafkaStream) watchDeliveries() {
	defer close(st.done)
	for e := range st.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Errorf("Failed to deliver message to %s: %v", *ev.TopicPartition.Topic, ev.TopicPartition.Error)
			}
		case kafka.Error:
			logger.Warnf("Kafka producer error: %v", ev)
		}
	}
}

// ProduceMessage queues value on topic, keyed by key.
func (st *KafkaStream) ProduceMessage(topic, key string, value []byte) error {
	err := st.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
	if err != nil {
		logger.Errorf("Failed to produce message: %v", err)
		return err
	}

	logger.Debugf("Message sent to topic %s", topic)
	return nil
}

// Publish encodes e and queues it on the topic for its type.
func (st *KafkaStream) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return st.ProduceMessage(Topic(e.Type), e.Reference, data)
}

// Close flushes queued messages, waiting at most timeout, and shuts the producer down.
func (st *KafkaStream) Close(timeout time.Duration) {
	if left := st.producer.Flush(int(timeout.Milliseconds())); left > 0 {
		logger.Warnf("%d kafka messages were not delivered before shutdown", left)
	}
	st.producer.Close()
	<-st.done
}
