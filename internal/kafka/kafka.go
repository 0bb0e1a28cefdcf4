// Package kafka provides topic declaration, broker readiness probing and a reconnecting publisher for image events
package kafka

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// InitKafkaTopics - объявляет топики; уже существующий топик считается успехом, поэтому вызов идемпотентен.
// maxMessageBytes > 0 пишется в max.message.bytes создаваемых топиков, у существующих конфиг не меняется.
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, maxMessageBytes int64, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		req.Topics = append(req.Topics, topicConfig(t, maxMessageBytes))
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("InitKafkaTopics canceled or timed out")
			return ctx.Err()
		default:
		}

		resp, err := client.CreateTopics(ctx, &req)
		if err != nil {
			log.Printf("Failed to run topics creation request: %v\nWait %v before next try...", err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		if topicsDeclared(resp.Errors) {
			log.Println("All topics declared successfully!")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func topicConfig(name string, maxMessageBytes int64) kafkago.TopicConfig {
	topic := kafkago.TopicConfig{
		Topic:             name,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}
	if maxMessageBytes > 0 {
		topic.ConfigEntries = []kafkago.ConfigEntry{{
			ConfigName:  "max.message.bytes",
			ConfigValue: strconv.FormatInt(maxMessageBytes, 10),
		}}
	}
	return topic
}

// NewGroupReader - читатель группы, способный забрать сообщение размером до maxMessageBytes
// (умолчание kafka-go - 1e6 байт, меньше лимита писателя)
func NewGroupReader(broker, topic, groupID string, maxMessageBytes int64) *kafkago.Reader {
	cfg := kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.FirstOffset,
	}
	if maxMessageBytes > 0 {
		cfg.MaxBytes = int(maxMessageBytes)
	}
	return kafkago.NewReader(cfg)
}

// ReadinessInterval - период опроса брокера при старте
const ReadinessInterval = 5 * time.Second

// WaitKafkaReady - блокирует до первого успешного подключения к брокеру или отмены ctx
func WaitKafkaReady(ctx context.Context, brokerAddr string) error {
	return waitReady(ctx, brokerAddr, ReadinessInterval, func(ctx context.Context, addr string) error {
		conn, err := kafkago.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		if errConn := conn.Close(); errConn != nil {
			log.Println("Failed to close connection after testing Kafka readyness:", errConn)
		}
		return nil
	})
}

func waitReady(ctx context.Context, addr string, interval time.Duration, dial func(context.Context, string) error) error {
	for {
		err := dial(ctx, addr)
		if err == nil {
			log.Println("Kafka is ready!")
			return nil
		}
		log.Printf("Kafka not ready (%v), retrying in %v...", err, interval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// topicsDeclared - nil и TopicAlreadyExists считаются успехом
func topicsDeclared(errs map[string]error) bool {
	ok := true
	for k, v := range errs {
		switch {
		case v == nil, errors.Is(v, kafkago.TopicAlreadyExists):
		default:
			log.Printf("Topic %q creation error: %v", k, v)
			ok = false
		}
	}
	return ok
}
