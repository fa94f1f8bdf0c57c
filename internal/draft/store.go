// internal/draft/store.go
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store autosaves drafts to Redis keyed by editing session, so an
// in-progress draft survives a page reload or process restart mid-edit.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// ErrDraftNotFound is returned when no autosaved draft exists for a session.
var ErrDraftNotFound = fmt.Errorf("draft not found")

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func draftKey(sessionID string) string {
	return "draft:" + sessionID
}

// Save serializes the draft under the session key, refreshing the TTL.
func (s *Store) Save(ctx context.Context, sessionID string, menu *Menu) error {
	data, err := json.Marshal(menu)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load fetches the autosaved draft for a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*Menu, error) {
	data, err := s.client.Get(ctx, draftKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	var menu Menu
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &menu, nil
}

// Delete discards the autosaved draft, e.g. after a successful publish.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, draftKey(sessionID)).Err()
}
