package journal

import (
	"context"

	"github.com/capitalize-ai/educhat/internal/model"
)

// Publisher sends an entry to a message stream.
type Publisher interface {
	PublishInteraction(ctx context.Context, entry *model.InteractionEntry) (uint64, error)
}

// StreamJournal publishes every turn to a NATS JetStream subject.
type StreamJournal struct {
	publisher Publisher
}

// NewStreamJournal creates a journal over publisher.
func NewStreamJournal(publisher Publisher) *StreamJournal {
	return &StreamJournal{publisher: publisher}
}

// Append implements Journal.
func (j *StreamJournal) Append(ctx context.Context, entry *model.InteractionEntry) error {
	_, err := j.publisher.PublishInteraction(ctx, entry)
	return err
}
