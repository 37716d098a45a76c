// Package journal records every completed turn for later analysis. It is
// write-only: nothing in the tutor reads it back.
package journal

import (
	"context"
	"errors"

	"github.com/capitalize-ai/educhat/internal/model"
)

// Journal appends interaction entries.
type Journal interface {
	Append(ctx context.Context, entry *model.InteractionEntry) error
}

type multi []Journal

// Multi fans one entry out to every journal. All journals are tried; the
// failures are joined.
func Multi(journals ...Journal) Journal {
	out := make(multi, 0, len(journals))
	for _, j := range journals {
		if j != nil {
			out = append(out, j)
		}
	}
	return out
}

func (m multi) Append(ctx context.Context, entry *model.InteractionEntry) error {
	var errs []error
	for _, j := range m {
		if err := j.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards entries.
type Nop struct{}

// Append implements Journal.
func (Nop) Append(context.Context, *model.InteractionEntry) error { return nil }
