// internal/draft/store_test.go
package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), mr
}

func sampleMenu() *Menu {
	m := NewMenu("Lunch", "en")
	it := NewItem()
	it.Name = "Doro Wat"
	it.Prices = []string{"250"}
	it.Images = []string{"https://x/img.png"}
	m.Sections = []Section{{Name: "Imported", Items: []Item{it}}}
	return m
}

func TestStore_SaveAndLoadRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	menu := sampleMenu()
	require.NoError(t, store.Save(ctx, "session-1", menu))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, menu, loaded)
}

func TestStore_LoadMissingDraft(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestStore_SaveSetsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), "session-1", sampleMenu()))

	ttl := mr.TTL("draft:session-1")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-1", sampleMenu()))
	require.NoError(t, store.Delete(ctx, "session-1"))

	_, err := store.Load(ctx, "session-1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}
