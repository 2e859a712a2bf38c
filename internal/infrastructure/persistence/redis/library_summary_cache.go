package redis

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIBRARY SUMMARY CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LibrarySummaryCache implements query.SummaryCache with a short TTL.
// A miss is reported as (nil, nil); the query falls through to the primary
// store. Eligibility and payment decisions never read this cache.
type LibrarySummaryCache struct {
	cache *Cache
}

// NewLibrarySummaryCache creates a new LibrarySummaryCache.
func NewLibrarySummaryCache(cache *Cache) *LibrarySummaryCache {
	return &LibrarySummaryCache{cache: cache}
}

func summaryKey(studentID string) string {
	return PrefixLibrarySummary + studentID
}

// Get returns the cached summary, or (nil, nil) on a miss.
func (c *LibrarySummaryCache) Get(ctx context.Context, studentID string) (*query.LibrarySummary, error) {
	var summary query.LibrarySummary
	err := c.cache.Get(ctx, summaryKey(studentID), &summary)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// Set stores the summary with the standard TTL.
func (c *LibrarySummaryCache) Set(ctx context.Context, summary *query.LibrarySummary) error {
	if summary == nil {
		return nil
	}
	return c.cache.Set(ctx, summaryKey(summary.StudentID), summary, TTLLibrarySummary)
}

// Invalidate drops the cached summary for the student.
func (c *LibrarySummaryCache) Invalidate(ctx context.Context, studentID string) error {
	return c.cache.Delete(ctx, summaryKey(studentID))
}
