package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
)

// KafkaFeedOptions configures a KafkaFeed.
type KafkaFeedOptions struct {
	Brokers []string
	Topic   string
	GroupID string
	Buffer  int
	Logger  *logrus.Entry
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaFeed consumes trade records published by an upstream indexer.
// With a GroupID set, offsets are committed by the reader as messages are read.
type KafkaFeed struct {
	reader messageReader
	topic  string
	buffer int
	log    *logrus.Entry
}

// NewKafkaFeed creates a consumer-group reader for opts.Topic.
func NewKafkaFeed(opts KafkaFeedOptions) (*KafkaFeed, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka feed: no brokers configured")
	}
	if opts.Topic == "" {
		return nil, errors.New("kafka feed: topic is required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: opts.Brokers,
		Topic:   opts.Topic,
		GroupID: opts.GroupID,
	})
	return newKafkaFeed(reader, opts), nil
}

func newKafkaFeed(reader messageReader, opts KafkaFeedOptions) *KafkaFeed {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("kafka-feed")
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 100
	}
	return &KafkaFeed{reader: reader, topic: opts.Topic, buffer: buffer, log: log}
}

// Name implements Feed.
func (f *KafkaFeed) Name() string { return "kafka" }

// Records implements Feed. The reader is closed when the feed ends.
func (f *KafkaFeed) Records(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte, f.buffer)

	go func() {
		defer close(out)
		defer func() {
			if err := f.reader.Close(); err != nil {
				f.log.WithError(err).Warn("close kafka reader")
			}
		}()

		for {
			msg, err := f.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.log.WithError(fmt.Errorf("read %s: %w", f.topic, err)).Error("kafka feed stopped")
				}
				return
			}
			select {
			case out <- msg.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
