package storage

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modelgate/modelgate/internal/storage/models"
)

// AsyncWriter batches request logs onto a background goroutine pool so the
// request path never blocks on SQLite. Entries are dropped when the buffer
// fills. Daily usage rollups are derived from each flushed batch.
type AsyncWriter struct {
	storage Storage
	ch      chan *models.RequestLog

	batchSize     int
	flushInterval time.Duration

	group  *errgroup.Group
	cancel context.CancelFunc

	written atomic.Int64
	dropped atomic.Int64
}

// AsyncWriterConfig controls buffering and flush behavior.
type AsyncWriterConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Workers       int
}

// NewAsyncWriter starts the worker goroutines and returns the writer.
// Close must be called to flush pending entries on shutdown.
func NewAsyncWriter(storage Storage, cfg AsyncWriterConfig) *AsyncWriter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	w := &AsyncWriter{
		storage:       storage,
		ch:            make(chan *models.RequestLog, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		group:         group,
		cancel:        cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			w.worker(ctx)
			return nil
		})
	}

	return w
}

// Write enqueues a log entry without blocking. Entries are dropped when the
// buffer is full.
func (w *AsyncWriter) Write(log *models.RequestLog) {
	select {
	case w.ch <- log:
		w.written.Add(1)
	default:
		if w.dropped.Add(1)%100 == 1 {
			slog.Warn("log buffer full, dropping entries", "dropped", w.dropped.Load())
		}
	}
}

// Dropped reports how many entries were discarded due to a full buffer.
func (w *AsyncWriter) Dropped() int64 {
	return w.dropped.Load()
}

func (w *AsyncWriter) worker(ctx context.Context) {
	batch := make([]*models.RequestLog, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case log := <-w.ch:
					batch = append(batch, log)
					if len(batch) >= w.batchSize {
						w.flush(batch)
						batch = batch[:0]
					}
				default:
					w.flush(batch)
					return
				}
			}

		case log := <-w.ch:
			batch = append(batch, log)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *AsyncWriter) flush(batch []*models.RequestLog) {
	if len(batch) == 0 {
		return
	}

	if err := w.storage.LogRequestsBatch(batch); err != nil {
		slog.Error("failed to persist log batch", "count", len(batch), "error", err)
		return
	}

	for _, usage := range rollupUsage(batch) {
		if err := w.storage.UpdateDailyUsage(usage); err != nil {
			slog.Error("failed to update usage rollup",
				"provider", usage.Provider, "model", usage.Model, "error", err)
		}
	}
}

// rollupUsage aggregates a batch into per-day, per-provider, per-model deltas.
func rollupUsage(batch []*models.RequestLog) []*models.DailyUsage {
	byKey := make(map[string]*models.DailyUsage)
	var keys []string

	for _, log := range batch {
		if log.Provider == "" {
			continue
		}

		date := log.CreatedAt.UTC().Format("2006-01-02")
		key := date + "\x00" + log.Provider + "\x00" + log.Model

		usage, ok := byKey[key]
		if !ok {
			usage = &models.DailyUsage{
				Date:     date,
				Provider: log.Provider,
				Model:    log.Model,
			}
			byKey[key] = usage
			keys = append(keys, key)
		}

		usage.RequestCount++
		usage.PromptTokens += log.PromptTokens
		usage.CompletionTokens += log.CompletionTokens
		usage.TotalTokens += log.TotalTokens
		if log.StatusCode >= 400 {
			usage.ErrorCount++
		}
	}

	out := make([]*models.DailyUsage, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out
}

// Close stops the workers after draining the buffer.
func (w *AsyncWriter) Close() error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		_ = w.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("timed out waiting for log workers to drain")
	}
	return nil
}
