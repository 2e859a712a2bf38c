package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE STORE
// ══════════════════════════════════════════════════════════════════════════════

// Presence event types published on ChannelPresence.
const (
	PresenceOnline  = "user:online"
	PresenceOffline = "user:offline"
)

// PresenceEvent is the cross-instance presence change notification.
type PresenceEvent struct {
	Type      string    `json:"type"`
	Identity  string    `json:"identity"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceStore mirrors in-process presence state into Redis so that every
// instance sees the same online set. Keys carry a TTL as a liveness bound;
// a live connection refreshes the key, a crashed instance lets it expire.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

func presenceKey(identity string) string {
	return PrefixPresence + identity
}

// SetOnline marks the identity online and publishes the change.
func (s *PresenceStore) SetOnline(ctx context.Context, identity string) error {
	if err := s.client.Set(ctx, presenceKey(identity), time.Now().UTC().Format(time.RFC3339), TTLPresence).Err(); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	return s.publish(ctx, PresenceOnline, identity)
}

// Refresh extends the TTL of an online identity without publishing.
func (s *PresenceStore) Refresh(ctx context.Context, identity string) error {
	if err := s.client.Expire(ctx, presenceKey(identity), TTLPresence).Err(); err != nil {
		return fmt.Errorf("presence refresh: %w", err)
	}
	return nil
}

// SetOffline removes the identity and publishes the change.
func (s *PresenceStore) SetOffline(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, presenceKey(identity)).Err(); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	return s.publish(ctx, PresenceOffline, identity)
}

// IsOnline reports whether the identity has a live presence key.
func (s *PresenceStore) IsOnline(ctx context.Context, identity string) (bool, error) {
	n, err := s.client.Exists(ctx, presenceKey(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("presence check: %w", err)
	}
	return n > 0, nil
}

// ListOnline returns every identity with a live presence key.
func (s *PresenceStore) ListOnline(ctx context.Context) ([]string, error) {
	var (
		cursor     uint64
		identities []string
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, PrefixPresence+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("presence scan: %w", err)
		}
		for _, key := range keys {
			identities = append(identities, key[len(PrefixPresence):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return identities, nil
}

// Subscribe delivers presence events published by any instance. The returned
// channel closes when ctx is done.
func (s *PresenceStore) Subscribe(ctx context.Context) (<-chan PresenceEvent, error) {
	sub := s.client.Subscribe(ctx, ChannelPresence)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("presence subscribe: %w", err)
	}

	out := make(chan PresenceEvent, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event PresenceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *PresenceStore) publish(ctx context.Context, eventType, identity string) error {
	payload, err := json.Marshal(PresenceEvent{
		Type:      eventType,
		Identity:  identity,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("presence marshal: %w", err)
	}
	if err := s.client.Publish(ctx, ChannelPresence, payload).Err(); err != nil {
		return fmt.Errorf("presence publish: %w", err)
	}
	return nil
}
