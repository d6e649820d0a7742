package glr

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordLoad is called after each LoadClass.
	// size is the class-file length, err is nil if successful.
	RecordLoad(size int, duration time.Duration, err error)

	// RecordFind is called after each Find. hit reports whether the class
	// was present.
	RecordFind(hit bool, duration time.Duration)

	// RecordGrow is called after the class table doubled to capacity slots.
	RecordGrow(capacity int)

	// RecordFetch is called after each class-file fetch from a repository.
	RecordFetch(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordFind(bool, time.Duration)        {}
func (NoopMetricsCollector) RecordGrow(int)                        {}
func (NoopMetricsCollector) RecordFetch(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadBytes      atomic.Int64
	LoadTotalNanos atomic.Int64
	FindCount      atomic.Int64
	FindMisses     atomic.Int64
	GrowCount      atomic.Int64
	TableCapacity  atomic.Int64
	FetchCount     atomic.Int64
	FetchErrors    atomic.Int64
	FetchBytes     atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(size int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(int64(size))
}

// RecordFind implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFind(hit bool, _ time.Duration) {
	b.FindCount.Add(1)
	if !hit {
		b.FindMisses.Add(1)
	}
}

// RecordGrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrow(capacity int) {
	b.GrowCount.Add(1)
	b.TableCapacity.Store(int64(capacity))
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(bytes int, _ time.Duration, err error) {
	b.FetchCount.Add(1)
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		LoadBytes:     b.LoadBytes.Load(),
		LoadAvgNanos:  b.getAvgLoadNanos(),
		FindCount:     b.FindCount.Load(),
		FindMisses:    b.FindMisses.Load(),
		GrowCount:     b.GrowCount.Load(),
		TableCapacity: b.TableCapacity.Load(),
		FetchCount:    b.FetchCount.Load(),
		FetchErrors:   b.FetchErrors.Load(),
		FetchBytes:    b.FetchBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgLoadNanos() int64 {
	count := b.LoadCount.Load()
	if count == 0 {
		return 0
	}
	return b.LoadTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount     int64
	LoadErrors    int64
	LoadBytes     int64
	LoadAvgNanos  int64
	FindCount     int64
	FindMisses    int64
	GrowCount     int64
	TableCapacity int64
	FetchCount    int64
	FetchErrors   int64
	FetchBytes    int64
}
