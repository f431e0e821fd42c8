package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"evergreen/internal/gateway/notifier"
	"evergreen/internal/logger"
	"evergreen/internal/metrics"
	"evergreen/internal/store"
	"evergreen/internal/transport/ws"
)

const defaultPublishTimeout = 15 * time.Second

// Sink is one best-effort destination for a recorded run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec store.DecisionRecord) error
}

// FanOut publishes to every sink concurrently and waits for all of them.
// Failures are logged and counted per sink.
type FanOut struct {
	sinks   []Sink
	timeout time.Duration
}

func NewFanOut(timeout time.Duration, sinks ...Sink) *FanOut {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &FanOut{sinks: sinks, timeout: timeout}
}

func (f *FanOut) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (f *FanOut) Publish(ctx context.Context, rec store.DecisionRecord) {
	if len(f.sinks) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()
	var eg errgroup.Group
	for _, sink := range f.sinks {
		eg.Go(func() error {
			if err := sink.Publish(pubCtx, rec); err != nil {
				metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
				logger.Warnf("decision %s: publish to %s failed: %v", rec.DecisionID, sink.Name(), err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// CachePutter is satisfied by the redis decision cache.
type CachePutter interface {
	Put(ctx context.Context, rec store.DecisionRecord) error
}

// Archiver is satisfied by the S3 archiver.
type Archiver interface {
	Archive(ctx context.Context, rec store.DecisionRecord) (string, error)
}

// Broadcaster is satisfied by the websocket hub.
type Broadcaster interface {
	Broadcast(msg ws.Message) bool
}

type cacheSink struct{ cache CachePutter }

func CacheSink(c CachePutter) Sink { return cacheSink{cache: c} }

func (cacheSink) Name() string { return "redis" }

func (s cacheSink) Publish(ctx context.Context, rec store.DecisionRecord) error {
	return s.cache.Put(ctx, rec)
}

type archiveSink struct{ archiver Archiver }

func ArchiveSink(a Archiver) Sink { return archiveSink{archiver: a} }

func (archiveSink) Name() string { return "s3" }

func (s archiveSink) Publish(ctx context.Context, rec store.DecisionRecord) error {
	key, err := s.archiver.Archive(ctx, rec)
	if err != nil {
		return err
	}
	logger.Debugf("decision %s archived to %s", rec.DecisionID, key)
	return nil
}

type broadcastSink struct{ hub Broadcaster }

func BroadcastSink(b Broadcaster) Sink { return broadcastSink{hub: b} }

func (broadcastSink) Name() string { return "websocket" }

func (s broadcastSink) Publish(_ context.Context, rec store.DecisionRecord) error {
	payload := json.RawMessage(rec.RawJSON)
	if !json.Valid(payload) {
		payload = nil
	}
	if !s.hub.Broadcast(ws.Message{Type: "decision", DecisionID: rec.DecisionID, Payload: payload}) {
		return fmt.Errorf("broadcast dropped")
	}
	return nil
}

type notifySink struct{ n notifier.TextNotifier }

func NotifySink(n notifier.TextNotifier) Sink { return notifySink{n: n} }

func (notifySink) Name() string { return "telegram" }

func (s notifySink) Publish(ctx context.Context, rec store.DecisionRecord) error {
	return s.n.SendText(ctx, notifier.DecisionMessage(rec).RenderMarkdown())
}
