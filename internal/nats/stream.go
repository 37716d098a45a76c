package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/model"
)

const (
	// StreamName is the name of the interaction log stream.
	StreamName = "EDUCHAT_INTERACTIONS"

	// SubjectPrefix is the prefix for all interaction subjects.
	SubjectPrefix = "educhat.interactions"

	// SessionBucket is the key-value bucket holding session memory.
	SessionBucket = "EDUCHAT_SESSIONS"

	interactionBatch = 256
)

// ErrEmptyToken is returned when a session id would produce an empty
// subject token or key.
var ErrEmptyToken = errors.New("session id is empty")

// EncodeToken maps an opaque session id onto characters valid in both
// subject tokens and key-value keys.
func EncodeToken(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyToken
	}
	return base64.RawURLEncoding.EncodeToString([]byte(id)), nil
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return string(raw), nil
}

// InteractionSubject returns the subject for one session's interactions.
func InteractionSubject(sessionID string) (string, error) {
	token, err := EncodeToken(sessionID)
	if err != nil {
		return "", err
	}
	return SubjectPrefix + "." + token, nil
}

// StreamManager handles JetStream stream and bucket operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the interactions stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "EduChat interaction log, one message per turn",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	m.client.logger.Info("created JetStream stream", zap.String("stream", StreamName))
	return nil
}

// EnsureKeyValue returns the session bucket, creating it if needed. A ttl
// of zero keeps entries forever.
func (m *StreamManager) EnsureKeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	js := m.client.JetStream()

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("lookup bucket %s: %w", bucket, err)
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "EduChat session memory",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	m.client.logger.Info("created JetStream bucket", zap.String("bucket", bucket), zap.Duration("ttl", ttl))
	return kv, nil
}

// PublishInteraction publishes one interaction entry to JetStream.
func (m *StreamManager) PublishInteraction(ctx context.Context, entry *model.InteractionEntry) (uint64, error) {
	subject, err := InteractionSubject(entry.SessionID)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal interaction: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish interaction: %w", err)
	}

	return ack.Sequence, nil
}

// Interactions returns the latest limit logged turns of a session, oldest
// first. A limit of zero or less means 100.
func (m *StreamManager) Interactions(ctx context.Context, sessionID string, limit int) ([]model.InteractionEntry, error) {
	subject, err := InteractionSubject(sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	js := m.client.JetStream()
	stream, err := js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("lookup stream: %w", err)
	}
	info, err := stream.Info(ctx, jetstream.WithSubjectFilter(subject))
	if err != nil {
		return nil, fmt.Errorf("stream info: %w", err)
	}

	total := info.State.Subjects[subject]
	if total == 0 {
		return nil, nil
	}
	var skip uint64
	if total > uint64(limit) {
		skip = total - uint64(limit)
	}

	consumer, err := js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	entries := make([]model.InteractionEntry, 0, total-skip)
	var seen uint64
	for seen < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := consumer.Fetch(interactionBatch, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch interactions: %w", err)
		}

		received := 0
		for msg := range batch.Messages() {
			received++
			seen++
			if seen > skip {
				var entry model.InteractionEntry
				if err := json.Unmarshal(msg.Data(), &entry); err != nil {
					m.client.logger.Warn("skipping undecodable interaction", zap.String("subject", msg.Subject()), zap.Error(err))
				} else {
					entries = append(entries, entry)
				}
			}
			if seen >= total {
				break
			}
		}

		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch error: %w", err)
		}
		if received == 0 {
			break
		}
	}

	return entries, nil
}
