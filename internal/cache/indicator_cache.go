// Package cache provides fingerprint-validated memoization of computed
// indicator sets, shared across bot instances.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/yourusername/coinpilot/internal/metrics"
	"github.com/yourusername/coinpilot/internal/models"
)

// fingerprintRows is the size of the trailing candle slice hashed into
// the entry fingerprint. Only the most recent rows influence indicator
// recomputation, so two windows with identical tails share a fingerprint.
const fingerprintRows = 5

// emptyFingerprint is the sentinel digest for an empty window. It can
// never collide with a real digest, so an empty window is always a miss.
const emptyFingerprint = "empty"

// Key identifies one cached indicator set
type Key struct {
	Symbol    string
	Timeframe string
	Strategy  string
}

// String returns the string representation of a cache key
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Symbol, k.Timeframe, k.Strategy)
}

// Entry holds a memoized indicator set together with the fingerprint of
// the data window it was computed from.
type Entry struct {
	Fingerprint string
	Indicators  map[string]float64
	CachedAt    time.Time
}

// Stats reports cumulative cache counters
type Stats struct {
	Hits   uint64
	Misses uint64
	Saves  uint64
}

// IndicatorCache memoizes computed indicator sets per
// (symbol, timeframe, strategy), validated by a fingerprint of the most
// recent market data. Safe for concurrent use.
type IndicatorCache struct {
	cache  *gocache.Cache
	ttl    time.Duration
	mu     sync.Mutex
	hits   uint64
	misses uint64
	saves  uint64
}

// New creates an indicator cache whose entries expire after ttl
func New(ttl time.Duration) *IndicatorCache {
	return &IndicatorCache{
		cache: gocache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Fingerprint derives a short digest from the trailing rows of a candle
// window. It is pure and total: an empty window yields the sentinel digest.
func Fingerprint(window []models.Candle) string {
	if len(window) == 0 {
		return emptyFingerprint
	}

	start := len(window) - fingerprintRows
	if start < 0 {
		start = 0
	}

	h := sha256.New()
	for _, c := range window[start:] {
		fmt.Fprintf(h, "%.8f|%.8f|%.8f|%.8f|%.8f;", c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// Get returns the memoized indicators for the key if the stored
// fingerprint matches the current window. Any mismatch is a miss, never
// a stale hit.
func (ic *IndicatorCache) Get(symbol, timeframe, strategy string, window []models.Candle) (map[string]float64, bool) {
	key := Key{Symbol: symbol, Timeframe: timeframe, Strategy: strategy}

	if raw, found := ic.cache.Get(key.String()); found {
		if entry, ok := raw.(*Entry); ok && entry.Fingerprint == Fingerprint(window) && entry.Fingerprint != emptyFingerprint {
			ic.recordHit()
			return entry.Indicators, true
		}
	}

	ic.recordMiss()
	return nil, false
}

// Set memoizes an indicator set for the key, fingerprinted against the
// window it was computed from.
func (ic *IndicatorCache) Set(symbol, timeframe, strategy string, window []models.Candle, indicators map[string]float64) {
	key := Key{Symbol: symbol, Timeframe: timeframe, Strategy: strategy}
	entry := &Entry{
		Fingerprint: Fingerprint(window),
		Indicators:  indicators,
		CachedAt:    time.Now().UTC(),
	}
	ic.cache.Set(key.String(), entry, ic.ttl)

	ic.mu.Lock()
	ic.saves++
	ic.mu.Unlock()
	metrics.IndicatorCacheSavesTotal.Inc()
}

// Invalidate removes entries matching the given key fields. Empty fields
// widen the scope; all fields empty clears the whole cache.
func (ic *IndicatorCache) Invalidate(symbol, timeframe, strategy string) {
	if symbol == "" && timeframe == "" && strategy == "" {
		ic.cache.Flush()
		return
	}

	for k := range ic.cache.Items() {
		parts := strings.SplitN(k, "|", 3)
		if len(parts) != 3 {
			continue
		}
		if symbol != "" && parts[0] != symbol {
			continue
		}
		if timeframe != "" && parts[1] != timeframe {
			continue
		}
		if strategy != "" && parts[2] != strategy {
			continue
		}
		ic.cache.Delete(k)
	}
}

// Clear flushes all entries and resets the counters
func (ic *IndicatorCache) Clear() {
	ic.cache.Flush()
	ic.mu.Lock()
	ic.hits = 0
	ic.misses = 0
	ic.saves = 0
	ic.mu.Unlock()
}

// Stats returns cumulative hit/miss/save counters
func (ic *IndicatorCache) Stats() Stats {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return Stats{Hits: ic.hits, Misses: ic.misses, Saves: ic.saves}
}

// ItemCount returns the number of live entries
func (ic *IndicatorCache) ItemCount() int {
	return ic.cache.ItemCount()
}

func (ic *IndicatorCache) recordHit() {
	ic.mu.Lock()
	ic.hits++
	ic.mu.Unlock()
	metrics.IndicatorCacheHitsTotal.Inc()
}

func (ic *IndicatorCache) recordMiss() {
	ic.mu.Lock()
	ic.misses++
	ic.mu.Unlock()
	metrics.IndicatorCacheMissesTotal.Inc()
}
