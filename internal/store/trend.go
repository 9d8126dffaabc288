package store

import (
	"sync"

	"airtwin/internal/types"
)

// trendRing is a fixed-size ring of dashboard samples.
type trendRing struct {
	mu   sync.RWMutex
	buf  []types.TrendSample
	next int
	full bool
}

func newTrendRing(capacity int) *trendRing {
	return &trendRing{buf: make([]types.TrendSample, capacity)}
}

func (r *trendRing) push(s types.TrendSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *trendRing) samples() []types.TrendSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full {
		out := make([]types.TrendSample, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]types.TrendSample, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
