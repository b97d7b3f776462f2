package group

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher writes envelopes to the group's Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, env *Envelope) error
	Close() error
}

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the group's events topic.
// brokers is a comma-separated list.
func NewKafkaPublisher(brokers, groupName string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        EventsTopic(groupName),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish marshals and writes one envelope, keyed by node ID so each
// node's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, env *Envelope) error {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.NodeID),
		Value: value,
		Time:  env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ChannelPublisher is an in-process Publisher implementation backed by a
// Go channel, for tests.
type ChannelPublisher struct {
	ch chan *Envelope
}

// NewChannelPublisher creates an in-process publisher.
func NewChannelPublisher() *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan *Envelope, 100)}
}

// Publish pushes the envelope into the channel.
func (p *ChannelPublisher) Publish(ctx context.Context, env *Envelope) error {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	p.ch <- env
	return nil
}

// Envelopes returns the published envelopes.
func (p *ChannelPublisher) Envelopes() <-chan *Envelope { return p.ch }

// Close closes the channel.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
