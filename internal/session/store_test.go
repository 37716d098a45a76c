package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go/jetstream"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/educhat/internal/model"
)

// runStoreContract checks the behavior every Store must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Get unknown key", func(t *testing.T) {
		sess, err := store.Get(ctx, "never-seen")
		require.NoError(t, err)
		assert.Equal(t, "never-seen", sess.ID)
		assert.Empty(t, sess.History)
		assert.Zero(t, sess.Turns)
		assert.Nil(t, sess.LastState)
	})

	t.Run("Put and Get", func(t *testing.T) {
		state := model.ConversationState{
			UserInput:        "Explain joins",
			Mode:             model.ModeConcept,
			History:          "User: Explain joins\nAgent: A join combines rows.",
			RetrievedContext: model.StringPtr("Joins combine rows."),
			FinalAnswer:      "A join combines rows.",
		}
		now := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
		sess := model.Session{ID: "s1"}.Advance(state, now)

		require.NoError(t, store.Put(ctx, "s1", sess))

		loaded, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, state.History, loaded.History)
		assert.Equal(t, 1, loaded.Turns)
		require.NotNil(t, loaded.LastState)
		assert.Equal(t, model.ModeConcept, loaded.LastState.Mode)
		assert.Equal(t, "Joins combine rows.", model.Deref(loaded.LastState.RetrievedContext))
		assert.True(t, now.Equal(loaded.UpdatedAt))
	})

	t.Run("Last write wins", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "s2", model.Session{ID: "s2", History: "first", Turns: 1}))
		require.NoError(t, store.Put(ctx, "s2", model.Session{ID: "s2", History: "second", Turns: 2}))

		loaded, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.History)
		assert.Equal(t, 2, loaded.Turns)
	})

	t.Run("Opaque keys", func(t *testing.T) {
		key := "alumno.42 / grupo*A"
		require.NoError(t, store.Put(ctx, key, model.Session{ID: key, History: "x"}))

		loaded, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "x", loaded.History)
	})

	t.Run("Empty key", func(t *testing.T) {
		_, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.ErrorIs(t, store.Put(ctx, "", model.Session{}), ErrEmptyKey)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore(0))
}

func TestMemoryStore_TTL(t *testing.T) {
	store := NewMemoryStore(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", model.Session{ID: "s", History: "h"}))
	assert.Equal(t, 1, store.Len())

	time.Sleep(80 * time.Millisecond)

	sess, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, sess.History)
}

func newMiniredisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newMiniredisStore(t)
	runStoreContract(t, store)
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	store, mr := newMiniredisStore(t, WithPrefix("test:"), WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", model.Session{ID: "s1", History: "h"}))

	assert.True(t, mr.Exists("test:s1"))
	assert.Equal(t, time.Hour, mr.TTL("test:s1"))

	mr.FastForward(2 * time.Hour)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.History)
}

func TestRedisStore_DecodeError(t *testing.T) {
	store, mr := newMiniredisStore(t)
	require.NoError(t, mr.Set(defaultRedisPrefix+"broken", "{not json"))

	_, err := store.Get(context.Background(), "broken")
	assert.Error(t, err)
}

func TestRedisStore_BackendDown(t *testing.T) {
	store, mr := newMiniredisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "s1")
	assert.Error(t, err)
	assert.Error(t, store.Put(context.Background(), "s1", model.Session{ID: "s1"}))
}

// fakeKV implements the parts of jetstream.KeyValue the store uses.
type fakeKV struct {
	jetstream.KeyValue

	mu   sync.Mutex
	data map[string][]byte
	err  error
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	key   string
	value []byte
}

func (e fakeEntry) Key() string   { return e.key }
func (e fakeEntry) Value() []byte { return e.value }

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func TestKVStore_Contract(t *testing.T) {
	runStoreContract(t, NewKVStore(newFakeKV()))
}

func TestKVStore_EncodesKeys(t *testing.T) {
	kv := newFakeKV()
	store := NewKVStore(kv)

	require.NoError(t, store.Put(context.Background(), "a.b*c", model.Session{ID: "a.b*c"}))

	for k := range kv.data {
		assert.NotContains(t, k, ".")
		assert.NotContains(t, k, "*")
	}
}

func TestKVStore_BackendError(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("nats: timeout")
	store := NewKVStore(kv)

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, kv.err)
	assert.ErrorIs(t, store.Put(context.Background(), "s1", model.Session{}), kv.err)
}
