package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"airtwin/internal/types"
)

const (
	DefaultHistoryCacheSize = 128
	DefaultHistoryCacheTTL  = time.Minute
)

// HistoryFetcher returns attribute time series.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error)
}

// CachedHistory memoizes history queries for a short time. Only successful
// responses are cached.
type CachedHistory struct {
	next  HistoryFetcher
	cache *expirable.LRU[string, types.TimeSeries]
}

// NewCachedHistory wraps next with an LRU of at most size entries, each kept
// for ttl. Non-positive values select the package defaults.
func NewCachedHistory(next HistoryFetcher, size int, ttl time.Duration) *CachedHistory {
	if size <= 0 {
		size = DefaultHistoryCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultHistoryCacheTTL
	}
	return &CachedHistory{
		next:  next,
		cache: expirable.NewLRU[string, types.TimeSeries](size, nil, ttl),
	}
}

// GetHistory returns a cached series for an identical query, or fetches it
// from the wrapped store. Errors are not cached.
func (c *CachedHistory) GetHistory(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error) {
	key := historyKey(q)
	if ts, ok := c.cache.Get(key); ok {
		return ts, nil
	}
	ts, err := c.next.GetHistory(ctx, q)
	if err != nil {
		return types.TimeSeries{}, err
	}
	c.cache.Add(key, ts)
	return ts, nil
}

// Len reports the number of cached queries.
func (c *CachedHistory) Len() int { return c.cache.Len() }

func historyKey(q types.HistoryQuery) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d", q.EntityID, q.EntityType, strings.Join(q.Attrs, ","),
		q.From.UnixNano(), q.To.UnixNano(), q.LastN)
}
