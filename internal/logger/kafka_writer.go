package logger

import (
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter ships log lines to a kafka topic. Keys are a running sequence
// so lines spread over partitions.
type KafkaWriter struct {
	w     messageWriter
	logID atomic.Uint64
}

func NewKafkaWriter(brokers []string, topic string) (*KafkaWriter, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no brokers provided")
	}
	if topic == "" {
		return nil, errors.New("no topic provided")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
		// 非同步送出, log 不可以卡住請求
		Async: true,
	}
	return newKafkaWriter(w), nil
}

func newKafkaWriter(w messageWriter) *KafkaWriter {
	return &KafkaWriter{w: w}
}

func (kw *KafkaWriter) Write(p []byte) (int, error) {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, kw.logID.Add(1))

	// zerolog reuses p after Write returns
	value := make([]byte, len(p))
	copy(value, p)

	if err := kw.w.WriteMessages(context.Background(), kafka.Message{Key: key, Value: value}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (kw *KafkaWriter) Close() error {
	return kw.w.Close()
}
