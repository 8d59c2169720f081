package redis

import (
	"context"
	"strings"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/notify"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotifyStream is the stream carrying notification intents from the
// engine to the delivery worker.
const NotifyStream = "notifications:dispatch"

// StreamDispatcher publishes notification intents onto a Redis stream.
// Publishing is best-effort: failures are logged and dropped, never
// propagated — a missed notification must not roll back a ledger
// transition.
type StreamDispatcher struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewStreamDispatcher(client *redis.Client, logger zerolog.Logger) *StreamDispatcher {
	return &StreamDispatcher{client: client, logger: logger}
}

func (d *StreamDispatcher) Dispatch(ctx context.Context, kind notify.Kind, bookingID uuid.UUID) {
	err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: NotifyStream,
		Values: map[string]any{
			"kind":       string(kind),
			"booking_id": bookingID.String(),
			"timestamp":  time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		d.logger.Warn().Err(err).
			Str("kind", string(kind)).
			Str("booking_id", bookingID.String()).
			Msg("Failed to queue notification, dropping")
	}
}

// StreamConsumer reads notification intents as part of a consumer group
// so multiple reconciler replicas share the stream.
type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return err
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // no new messages
		}
		return nil, err
	}
	return streams, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	return c.client.XAck(ctx, c.stream, c.group, messageID).Err()
}
