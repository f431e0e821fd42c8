package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("decision record not found")
	ErrClosed   = errors.New("decision store closed")
)

// Recorder is the write side of decision persistence. Records are write-once.
type Recorder interface {
	Save(ctx context.Context, rec DecisionRecord) error
}

// Reader serves persisted records back to the API.
type Reader interface {
	Get(ctx context.Context, id string) (DecisionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]DecisionRecord, error)
}

// DecisionStore is the entry point for database access.
type DecisionStore interface {
	Recorder
	Reader
	Close() error
}
