package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	headerOriginTopic = "lg-origin-topic"
	headerDLQError    = "lg-dlq-error"
)

// RunRequest is an on-demand pipeline invocation placed on the queue by the
// API and drained by the runner. Pipeline failures are recorded in the run
// itself, so the queue only dead-letters requests it cannot deliver.
type RunRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

type RunHandler func(context.Context, *RunRequest) error

type RunQueue struct {
	writer    *kafka.Writer
	dlqWriter *kafka.Writer
	reader    *kafka.Reader
	topic     string
	dlqTopic  string
}

func NewRunQueueProducer(brokers []string, clientID, topic string) *RunQueue {
	return &RunQueue{
		writer: newWriter(brokers, clientID),
		topic:  topic,
	}
}

func NewRunQueueConsumer(brokers []string, clientID, groupID, topic, dlqTopic string) *RunQueue {
	return &RunQueue{
		dlqWriter: newWriter(brokers, clientID),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer: &kafka.Dialer{
				ClientID: clientID,
			},
		}),
		topic:    topic,
		dlqTopic: dlqTopic,
	}
}

func newWriter(brokers []string, clientID string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}
}

func (q *RunQueue) Enqueue(ctx context.Context, request *RunRequest) error {
	if q.writer == nil {
		return errors.New("run queue writer is not configured")
	}
	if request.RequestID == uuid.Nil {
		request.RequestID = uuid.New()
	}
	if request.EnqueuedAt.IsZero() {
		request.EnqueuedAt = time.Now()
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal run request: %w", err)
	}

	// Keyed by owner so requests for one owner stay ordered on a partition.
	message := kafka.Message{
		Topic: q.topic,
		Key:   []byte(request.OwnerID.String()),
		Value: payload,
		Time:  time.Now(),
	}
	return q.writer.WriteMessages(ctx, message)
}

func (q *RunQueue) Consume(ctx context.Context, handler RunHandler) error {
	if q.reader == nil {
		return errors.New("run queue reader is not configured")
	}
	if handler == nil {
		return errors.New("run handler is required")
	}

	for {
		message, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}

		if err := q.handleMessage(ctx, message, handler); err != nil {
			return err
		}

		if err := q.reader.CommitMessages(ctx, message); err != nil {
			return fmt.Errorf("commit run request offset: %w", err)
		}
	}
}

func (q *RunQueue) handleMessage(ctx context.Context, message kafka.Message, handler RunHandler) error {
	var request RunRequest
	if err := json.Unmarshal(message.Value, &request); err != nil {
		return q.deadLetter(ctx, message, fmt.Errorf("unmarshal run request: %w", err))
	}

	if err := handler(ctx, &request); err != nil {
		return q.deadLetter(ctx, message, err)
	}
	return nil
}

func (q *RunQueue) deadLetter(ctx context.Context, message kafka.Message, handlerErr error) error {
	if q.dlqWriter == nil || q.dlqTopic == "" {
		return handlerErr
	}

	headers := append(message.Headers,
		kafka.Header{Key: headerOriginTopic, Value: []byte(message.Topic)},
		kafka.Header{Key: headerDLQError, Value: []byte(handlerErr.Error())},
	)

	dlqMessage := kafka.Message{
		Topic:   q.dlqTopic,
		Key:     message.Key,
		Value:   message.Value,
		Headers: headers,
		Time:    time.Now(),
	}
	return q.dlqWriter.WriteMessages(ctx, dlqMessage)
}

func (q *RunQueue) Close() error {
	if q.writer != nil {
		if err := q.writer.Close(); err != nil {
			return err
		}
	}
	if q.dlqWriter != nil {
		if err := q.dlqWriter.Close(); err != nil {
			return err
		}
	}
	if q.reader != nil {
		if err := q.reader.Close(); err != nil {
			return err
		}
	}
	return nil
}
