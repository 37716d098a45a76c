package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/capitalize-ai/educhat/internal/model"
)

const (
	maxNameLength = 100

	// writerIdleTTL is how long an idle session keeps its rotation state.
	writerIdleTTL = 10 * time.Minute
)

// FileJournal writes one JSON line per turn to <dir>/<session>.jsonl. No
// file stays open between appends, so the number of sessions does not
// bound the process's descriptors.
type FileJournal struct {
	dir string

	mu      sync.Mutex
	writers *cache.Cache
}

// NewFileJournal creates a journal under dir. The directory is created on
// first write.
func NewFileJournal(dir string) *FileJournal {
	return newFileJournal(dir, writerIdleTTL)
}

func newFileJournal(dir string, idle time.Duration) *FileJournal {
	writers := cache.New(idle, idle/2)
	writers.OnEvicted(func(_ string, v interface{}) {
		if w, ok := v.(*lumberjack.Logger); ok {
			_ = w.Close()
		}
	})
	return &FileJournal{
		dir:     dir,
		writers: writers,
	}
}

// Path returns the log file used for sessionID.
func (j *FileJournal) Path(sessionID string) string {
	return filepath.Join(j.dir, SanitizeName(sessionID)+".jsonl")
}

// Append writes entry to its session file.
func (j *FileJournal) Append(_ context.Context, entry *model.InteractionEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	w := j.writer(entry.SessionID)
	_, err = w.Write(line)
	closeErr := w.Close()
	if err != nil {
		return fmt.Errorf("failed to write interaction log %s: %w", w.Filename, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close interaction log %s: %w", w.Filename, closeErr)
	}
	return nil
}

// writer returns the rotating writer for a session and refreshes its idle
// deadline, assumes lock held.
func (j *FileJournal) writer(sessionID string) *lumberjack.Logger {
	path := j.Path(sessionID)
	if v, ok := j.writers.Get(path); ok {
		w := v.(*lumberjack.Logger)
		j.writers.SetDefault(path, w)
		return w
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // Megabytes
		MaxBackups: 5,
		MaxAge:     90, // Days
		Compress:   true,
	}
	j.writers.SetDefault(path, w)
	return w
}

// Close releases every cached writer.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	for _, item := range j.writers.Items() {
		if w, ok := item.Object.(*lumberjack.Logger); ok {
			if err := w.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	j.writers.Flush()
	return firstErr
}

// SanitizeName maps a session id onto a safe file name. When characters
// had to be replaced or dropped, a short hash of the raw id is appended
// after a '.' so distinct ids never share a file.
func SanitizeName(sessionID string) string {
	if sessionID == "" {
		return "default"
	}

	var b strings.Builder
	changed := false
	for _, r := range sessionID {
		if b.Len() >= maxNameLength {
			changed = true
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			changed = true
		}
	}

	name := b.String()
	if !changed {
		return name
	}

	sum := sha256.Sum256([]byte(sessionID))
	suffix := "." + hex.EncodeToString(sum[:4])
	if len(name) > maxNameLength-len(suffix) {
		name = name[:maxNameLength-len(suffix)]
	}
	return name + suffix
}
