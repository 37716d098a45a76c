package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/pkg/logger"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 100

	// embedConcurrency is the number of chunks embedded in parallel.
	embedConcurrency = 4
)

// BuildStats summarizes one index build.
type BuildStats struct {
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
	Chunks  int `json:"chunks"`
}

// Builder turns a directory of text documents into a chromem collection.
type Builder struct {
	db       *chromem.DB
	name     string
	embed    chromem.EmbeddingFunc
	splitter textsplitter.TextSplitter
	logger   *logger.Logger
}

// NewBuilder creates a builder writing to the chromem directory at path.
func NewBuilder(path, collection string, embed chromem.EmbeddingFunc, log *logger.Logger) (*Builder, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	return NewBuilderFromDB(db, collection, embed, log), nil
}

// NewBuilderFromDB creates a builder over an already opened database.
func NewBuilderFromDB(db *chromem.DB, collection string, embed chromem.EmbeddingFunc, log *logger.Logger) *Builder {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		db:    db,
		name:  collection,
		embed: embed,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(ChunkSize),
			textsplitter.WithChunkOverlap(ChunkOverlap),
		),
		logger: log,
	}
}

// Build replaces the collection with the chunks of every .txt file under dir.
func (b *Builder) Build(ctx context.Context, dir string) (BuildStats, error) {
	var stats BuildStats

	docs, err := b.collect(dir, &stats)
	if err != nil {
		return stats, err
	}

	if err := b.db.DeleteCollection(b.name); err != nil {
		return stats, fmt.Errorf("reset collection %s: %w", b.name, err)
	}
	collection, err := b.db.CreateCollection(b.name, nil, b.embed)
	if err != nil {
		return stats, fmt.Errorf("create collection %s: %w", b.name, err)
	}

	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, embedConcurrency); err != nil {
			return stats, fmt.Errorf("add documents: %w", err)
		}
	}
	stats.Chunks = len(docs)

	b.logger.Info("vector index built",
		zap.String("dir", dir),
		zap.String("collection", b.name),
		zap.Int("files", stats.Files),
		zap.Int("skipped", stats.Skipped),
		zap.Int("chunks", stats.Chunks))

	return stats, nil
}

func (b *Builder) collect(dir string, stats *BuildStats) ([]chromem.Document, error) {
	var docs []chromem.Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			stats.Skipped++
			return nil
		}

		chunks, err := b.splitter.SplitText(text)
		if err != nil {
			return fmt.Errorf("split %s: %w", path, err)
		}

		source, _ := filepath.Rel(dir, path)
		source = filepath.ToSlash(source)
		for i, chunk := range chunks {
			if strings.TrimSpace(chunk) == "" {
				continue
			}
			docs = append(docs, chromem.Document{
				ID:      source + "#" + strconv.Itoa(i),
				Content: chunk,
				Metadata: map[string]string{
					"source": source,
					"chunk":  strconv.Itoa(i),
				},
			})
		}
		stats.Files++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return docs, nil
}
