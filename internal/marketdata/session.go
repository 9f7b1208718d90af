// Package marketdata serializes access to the single market-data connection.
//
// The gateway accepts one chain request at a time. Callers check out the session,
// use it and release it; everyone else waits in arrival order.
package marketdata

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
)

// QueueObserver is told the number of waiting requests whenever it changes.
type QueueObserver interface {
	SetQueueDepth(n int)
}

// Session owns the market-data connection. Create one per process and pass it
// explicitly to whoever needs to fetch.
type Session struct {
	provider ports.ChainProvider
	observer QueueObserver

	mu      sync.Mutex
	busy    bool
	waiters *list.List // of chan struct{}, closed when the lease is handed over
}

// New wraps provider in a session. observer may be nil.
func New(provider ports.ChainProvider, observer QueueObserver) *Session {
	return &Session{
		provider: provider,
		observer: observer,
		waiters:  list.New(),
	}
}

// Lease is exclusive use of the session until Release.
type Lease struct {
	s    *Session
	once sync.Once
}

// Release returns the session to the next waiter. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(l.s.release)
}

// Checkout blocks until the session is free or ctx is done. Waiters are served
// first-in first-out. A request cancelled while queued leaves the queue and
// returns ctx.Err().
func (s *Session) Checkout(ctx context.Context) (*Lease, error) {
	s.mu.Lock()
	if !s.busy && s.waiters.Len() == 0 {
		s.busy = true
		s.mu.Unlock()
		return &Lease{s: s}, nil
	}
	ready := make(chan struct{})
	el := s.waiters.PushBack(ready)
	s.observeLocked()
	s.mu.Unlock()

	select {
	case <-ready:
		return &Lease{s: s}, nil
	case <-ctx.Done():
		s.mu.Lock()
		select {
		case <-ready:
			// Handed over while we were giving up; pass it on.
			s.mu.Unlock()
			s.release()
		default:
			s.waiters.Remove(el)
			s.observeLocked()
			s.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	front := s.waiters.Front()
	if front == nil {
		s.busy = false
		return
	}
	s.waiters.Remove(front)
	s.observeLocked()
	close(front.Value.(chan struct{}))
}

func (s *Session) observeLocked() {
	if s.observer != nil {
		s.observer.SetQueueDepth(s.waiters.Len())
	}
}

// QueueDepth is the number of requests waiting for the session.
func (s *Session) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// FetchChain checks out the session, fetches and releases on every path.
// Once the fetch has started it is not cancelled by ctx: the gateway request
// either completes or fails on its own.
func (s *Session) FetchChain(ctx context.Context, req ports.ChainRequest) (domain.ChainSnapshot, error) {
	lease, err := s.Checkout(ctx)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("marketdata.FetchChain: checkout: %w", err)
	}
	defer lease.Release()

	start := time.Now()
	snap, err := s.provider.FetchChain(context.WithoutCancel(ctx), req)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("marketdata.FetchChain: %w", err)
	}
	slog.Debug("chain fetched",
		"ticker", req.Ticker,
		"contracts", len(snap.Contracts),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return snap, nil
}
