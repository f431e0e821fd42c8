package store

import (
	"context"
	"sync"

	"evergreen/internal/logger"
)

// Opener establishes the backing store.
type Opener func(ctx context.Context) (DecisionStore, error)

// Lazy is a process-wide store handle opened on first use and shared by
// every run afterwards. A failed open is retried on the next call.
type Lazy struct {
	mu     sync.Mutex
	open   Opener
	store  DecisionStore
	closed bool
}

func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get(ctx context.Context) (DecisionStore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.store != nil {
		return l.store, nil
	}
	s, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("decision store connected")
	l.store = s
	return s, nil
}

func (l *Lazy) Save(ctx context.Context, rec DecisionRecord) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

func (l *Lazy) Get(ctx context.Context, id string) (DecisionRecord, error) {
	s, err := l.get(ctx)
	if err != nil {
		return DecisionRecord{}, err
	}
	return s.Get(ctx, id)
}

func (l *Lazy) ListRecent(ctx context.Context, limit int) ([]DecisionRecord, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListRecent(ctx, limit)
}

// Close releases the connection if one was ever opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}

// Nop discards records; used when persistence is switched off.
type Nop struct{}

func (Nop) Save(context.Context, DecisionRecord) error { return nil }
func (Nop) Get(context.Context, string) (DecisionRecord, error) {
	return DecisionRecord{}, ErrNotFound
}
func (Nop) ListRecent(context.Context, int) ([]DecisionRecord, error) { return nil, nil }
func (Nop) Close() error                                               { return nil }
