package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.EntryFeed = (*EntryFeed)(nil)

// EntryFeed bridges the per-user pub/sub channel into EntryEvent streams.
type EntryFeed struct {
	client *redis.Client
	logger *logger.Logger
}

func NewEntryFeed(client *redis.Client, logger *logger.Logger) *EntryFeed {
	return &EntryFeed{
		client: client,
		logger: logger,
	}
}

func (f *EntryFeed) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
	pubsub := f.client.Subscribe(ctx, FeedChannel(userID))

	// Force the subscription to be established before returning so callers
	// never miss events published right after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to entry feed: %w", err)
	}

	events := make(chan model.EntryEvent, 16)
	go f.pump(ctx, pubsub, events)

	return events, nil
}

func (f *EntryFeed) pump(ctx context.Context, pubsub *redis.PubSub, events chan<- model.EntryEvent) {
	defer close(events)
	defer func() { _ = pubsub.Close() }()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event model.EntryEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.logger.Error("entry feed received malformed event", "error", err)
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
