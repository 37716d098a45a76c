// Package retrieval provides similarity search over the course documents
// using chromem-go for vector storage.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/pkg/logger"
	"github.com/capitalize-ai/educhat/pkg/metrics"
)

const (
	// DefaultCollection is the chromem collection holding course chunks.
	DefaultCollection = "course"

	// DefaultK is the number of passages returned when k is not positive.
	DefaultK = 2

	// Separator joins passages into one context string.
	Separator = "\n\n---\n\n"
)

// Index is a read-only view over a persisted chromem collection.
//
// The database is opened on the first Search and never again; the outcome
// of that load, including an error, is shared by every later call. Search is
// safe for concurrent use.
type Index struct {
	name   string
	embed  chromem.EmbeddingFunc
	open   func() (*chromem.DB, error)
	logger *logger.Logger

	once       sync.Once
	collection *chromem.Collection
	loadErr    error
}

// NewIndex creates an index backed by the chromem directory at path.
func NewIndex(path, collection string, embed chromem.EmbeddingFunc, log *logger.Logger) *Index {
	return newIndex(collection, embed, log, func() (*chromem.DB, error) {
		return chromem.NewPersistentDB(path, false)
	})
}

// NewIndexFromDB creates an index over an already opened database.
func NewIndexFromDB(db *chromem.DB, collection string, embed chromem.EmbeddingFunc, log *logger.Logger) *Index {
	return newIndex(collection, embed, log, func() (*chromem.DB, error) {
		return db, nil
	})
}

func newIndex(collection string, embed chromem.EmbeddingFunc, log *logger.Logger, open func() (*chromem.DB, error)) *Index {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Index{
		name:   collection,
		embed:  embed,
		open:   open,
		logger: log,
	}
}

func (i *Index) load() (*chromem.Collection, error) {
	i.once.Do(func() {
		db, err := i.open()
		if err != nil {
			i.loadErr = fmt.Errorf("open vector index: %w", err)
			return
		}
		i.collection = db.GetCollection(i.name, i.embed)
		if i.collection == nil {
			i.logger.Warn("vector index has no collection, searches will return nothing",
				zap.String("collection", i.name))
			return
		}
		i.logger.Info("vector index loaded",
			zap.String("collection", i.name),
			zap.Int("documents", i.collection.Count()))
	})
	return i.collection, i.loadErr
}

// Count returns the number of indexed chunks.
func (i *Index) Count() (int, error) {
	c, err := i.load()
	if err != nil || c == nil {
		return 0, err
	}
	return c.Count(), nil
}

// Search returns up to k passages ordered by cosine similarity to query.
// An empty query or an empty collection yields no passages and no error.
func (i *Index) Search(ctx context.Context, query string, k int) ([]string, error) {
	start := time.Now()

	passages, err := i.search(ctx, query, k)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRetrieval(status, time.Since(start).Seconds())

	return passages, err
}

func (i *Index) search(ctx context.Context, query string, k int) ([]string, error) {
	c, err := i.load()
	if err != nil {
		return nil, err
	}
	if c == nil || strings.TrimSpace(query) == "" {
		return []string{}, nil
	}

	if k <= 0 {
		k = DefaultK
	}
	// chromem-go returns an error if nResults exceeds the document count.
	count := c.Count()
	if count == 0 {
		return []string{}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	passages := make([]string, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Content)
	}
	return passages, nil
}

// Join concatenates passages into a single context string.
func Join(passages []string) string {
	return strings.Join(passages, Separator)
}
