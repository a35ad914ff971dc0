package ingest

import (
	"log/slog"
)

const DefaultProgressInterval = 10_000

// ProgressListener receives progress updates from the aggregator.
// Milestone is called once for every multiple of the interval reached, in
// ascending order.
type ProgressListener interface {
	BatchPersisted(total int64, batches int)
	Milestone(count int64)
}

// ProgressAggregator owns the count of persisted items. It has a single
// writer, the pipeline loop, so it needs no synchronization.
type ProgressAggregator struct {
	interval  int64
	count     int64
	batches   int
	listeners []ProgressListener
}

func NewProgressAggregator(interval int64, listeners ...ProgressListener) *ProgressAggregator {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ProgressAggregator{
		interval:  interval,
		listeners: listeners,
	}
}

func (a *ProgressAggregator) OnBatchPersisted(size int) {
	if size <= 0 {
		return
	}
	prev := a.count
	a.count += int64(size)
	a.batches++

	for _, l := range a.listeners {
		l.BatchPersisted(a.count, a.batches)
	}
	for m := (prev/a.interval + 1) * a.interval; m <= a.count; m += a.interval {
		for _, l := range a.listeners {
			l.Milestone(m)
		}
	}
}

func (a *ProgressAggregator) Count() int64 {
	return a.count
}

func (a *ProgressAggregator) Batches() int {
	return a.batches
}

// LogReporter logs milestones at info level and every batch at debug level.
type LogReporter struct {
	log *slog.Logger
}

func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) BatchPersisted(total int64, batches int) {
	r.log.Debug("Batch persisted", "total", total, "batches", batches)
}

func (r *LogReporter) Milestone(count int64) {
	r.log.Info("Products processed", "count", count)
}
