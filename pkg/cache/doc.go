// Package cache provides a generic, thread-safe LRU cache with built-in
// statistics tracking and optional Prometheus metrics integration.
//
// # Overview
//
// The cache package is used by the fixups engine to memoize compiled
// regular expressions while rule files are parsed, so a pattern used by more
// than one rule is compiled once. It is generic over the stored value type, thread
// safe, and provides comprehensive observability through always-on
// statistics and optional metrics.
//
// # Quick Start
//
// LRU cache with capacity limit:
//
//	c, err := cache.NewLRU[*regexp.Regexp](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//	c.Set(pattern, compiled)
//	compiled, ok := c.Get(pattern)
//
// From configuration, falling back to a no-op cache when disabled:
//
//	c, err := cache.NewFromConfig[*regexp.Regexp](cfg,
//		cache.WithMetrics[*regexp.Regexp](registry, "fixups_regex"),
//	)
//
// # Eviction Policy
//
// Least Recently Used: when the cache exceeds its configured maximum size,
// the entry that was accessed longest ago is evicted first. Capacity-bound
// caches like this are the right fit when recent access patterns predict
// future access - the working set of regex patterns used by a fixups rule
// file is small and stable relative to the volume of packets processed.
//
//	c, _ := cache.NewLRU[V](maxSize)
//
// # Observability Architecture
//
// The cache package implements a dual-tracking pattern for comprehensive
// observability:
//
// Statistics (Always On):
//   - Tracks all operations using atomic counters
//   - Zero configuration required
//   - Available via cache.Stats()
//   - Provides computed metrics (hit ratio, requests/sec)
//   - No external dependencies
//
// Prometheus Metrics (Optional):
//   - Enabled via WithMetrics() option
//   - Exports to Prometheus for time-series monitoring
//   - Includes a component label for instance identification
//   - Standard metric types (Counter, Gauge)
//
// Statistics work without a metrics registry, so cache behavior remains
// inspectable even when Prometheus wiring is absent (unit tests, one-off
// tooling). Metrics are additive, not a replacement.
//
// # Disabling the Cache
//
// NewNoop returns a Cache that always misses, useful when the caller wants
// a uniform Cache interface but configuration says caching should be off:
//
//	c := cache.NewNoop[V]()
//
// NewFromConfig makes this automatic: Config.Enabled == false returns a
// no-op cache without the caller needing a branch.
//
// # Thread Safety
//
// All cache operations are safe for concurrent use. Eviction callbacks are
// invoked outside the internal lock to avoid deadlocks if the callback
// itself touches the cache.
package cache
