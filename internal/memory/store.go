// Package memory keeps an append-only log of finished requests and
// serves the successful ones back as hints for similar requests.
package memory

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Store is an append-only record log.
type Store interface {
	// Append adds a record. Records are never updated; appending an
	// existing id fails with ErrDuplicate.
	Append(ctx context.Context, rec core.MemoryRecord) error
	// FindSimilar returns up to limit succeeded records whose query is
	// most similar to utterance, best first.
	FindSimilar(ctx context.Context, utterance string, limit int) ([]core.MemoryRecord, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]core.MemoryRecord, error)
	Close() error
}

// ErrDuplicate is returned when a record id is appended twice.
var ErrDuplicate = errors.New("memory record already exists")
