// Package events carries attendance changes over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/redis/go-redis/v9"
)

// Broker publishes and subscribes to per-session attendance channels.
type Broker struct {
	rdb *redis.Client
}

// NewBroker creates a new Broker.
func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb}
}

// PublishAttendance sends evt on the session's channel.
func (b *Broker) PublishAttendance(ctx context.Context, evt model.AttendanceEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal attendance event: %w", err)
	}
	channel := config.CacheKey.SessionAttendanceChannel(evt.SessionID)
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscription is a live feed of one session's attendance events.
type Subscription struct {
	pubsub *redis.PubSub
}

// SubscribeAttendance subscribes to sessionID's channel. The caller must Close
// the subscription.
func (b *Broker) SubscribeAttendance(ctx context.Context, sessionID int) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.SessionAttendanceChannel(sessionID))
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe session %d: %w", sessionID, err)
	}
	return &Subscription{pubsub: pubsub}, nil
}

// Payloads returns raw JSON-encoded events.
func (s *Subscription) Payloads() <-chan *redis.Message {
	return s.pubsub.Channel()
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// Decode parses a raw payload into an AttendanceEvent.
func Decode(payload string) (model.AttendanceEvent, error) {
	var evt model.AttendanceEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return evt, fmt.Errorf("decode attendance event: %w", err)
	}
	return evt, nil
}
