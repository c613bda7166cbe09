package indexer

import (
	"context"
	"sync"
)

// Latest runs computations so that only the newest submission per key
// delivers a result. A new submission cancels the one still in flight for the
// same key; the stale caller gets ErrSuperseded.
type Latest struct {
	svc Service

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflight
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// NewLatest wraps svc.
func NewLatest(svc Service) *Latest {
	return &Latest{svc: svc, inflight: map[string]inflight{}}
}

// Compute runs req under key.
func (l *Latest) Compute(ctx context.Context, key string, req Request) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.seq++
	id := l.seq
	if prev, ok := l.inflight[key]; ok {
		prev.cancel()
	}
	l.inflight[key] = inflight{id: id, cancel: cancel}
	l.mu.Unlock()

	res, err := l.svc.Compute(ctx, req)

	l.mu.Lock()
	current := l.inflight[key].id == id
	if current {
		delete(l.inflight, key)
	}
	l.mu.Unlock()

	if !current {
		return nil, ErrSuperseded
	}
	return res, err
}
