// Package session persists per-session conversation memory.
package session

import (
	"context"
	"errors"

	"github.com/capitalize-ai/educhat/internal/model"
)

// ErrEmptyKey is returned for a blank session key.
var ErrEmptyKey = errors.New("session key is empty")

// Store maps a session key to its latest memory.
//
// Get on an unknown key returns a fresh Session with that id and no error;
// errors are reserved for backend failures. Put overwrites, last write wins.
type Store interface {
	Get(ctx context.Context, key string) (model.Session, error)
	Put(ctx context.Context, key string, s model.Session) error
}

func newSession(key string) model.Session {
	return model.Session{ID: key}
}
