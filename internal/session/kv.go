package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/educhat/internal/model"
	natsclient "github.com/capitalize-ai/educhat/internal/nats"
)

// KVStore keeps sessions in a NATS JetStream key-value bucket. Session ids
// are encoded so any string is a valid key.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates a store over an existing bucket.
func NewKVStore(kv jetstream.KeyValue) *KVStore {
	return &KVStore{kv: kv}
}

// Get returns the session for key.
func (s *KVStore) Get(ctx context.Context, key string) (model.Session, error) {
	k, err := natsclient.EncodeToken(key)
	if err != nil {
		return model.Session{}, ErrEmptyKey
	}

	entry, err := s.kv.Get(ctx, k)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return newSession(key), nil
		}
		return model.Session{}, fmt.Errorf("failed to get from bucket: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(entry.Value(), &sess); err != nil {
		return model.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return sess, nil
}

// Put stores the session under key.
func (s *KVStore) Put(ctx context.Context, key string, sess model.Session) error {
	k, err := natsclient.EncodeToken(key)
	if err != nil {
		return ErrEmptyKey
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if _, err := s.kv.Put(ctx, k, data); err != nil {
		return fmt.Errorf("failed to put to bucket: %w", err)
	}
	return nil
}
