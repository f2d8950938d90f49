package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"esi-market-trawler/internal/storage"
)

// Writer periodically snapshots a Collector and fully replaces the
// previous snapshot in a JSON file and/or the stats store. It runs on
// its own schedule, independent of bucket rotation.
type Writer struct {
	collector *Collector
	fileName  string             // empty disables the file sink
	store     storage.StatsStore // nil disables the database sink
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Collector *Collector
	FileName  string
	Store     storage.StatsStore
	Interval  time.Duration // default: RotatePeriod
	Logger    *log.Logger
}

// NewWriter creates a stats writer.
func NewWriter(opts WriterOptions) *Writer {
	interval := opts.Interval
	if interval == 0 {
		interval = RotatePeriod
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		collector: opts.Collector,
		fileName:  opts.FileName,
		store:     opts.Store,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Run writes a snapshot every interval until ctx is cancelled.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.WriteOnce(ctx); err != nil {
				w.logger.Printf("Error writing stats snapshot: %v", err)
			}
		}
	}
}

// WriteOnce snapshots the collector and pushes it to every configured sink.
func (w *Writer) WriteOnce(ctx context.Context) error {
	summary := w.collector.Summary()
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal stats summary: %w", err)
	}

	w.logger.Printf("Statistics update: %s", payload)

	if w.fileName != "" {
		if err := w.writeFile(payload); err != nil {
			return err
		}
	}

	if w.store != nil {
		if err := w.store.Replace(ctx, payload, w.now().UTC()); err != nil {
			return fmt.Errorf("replace stored stats: %w", err)
		}
	}

	return nil
}

// writeFile replaces the snapshot file via rename so readers never see a
// partial document.
func (w *Writer) writeFile(payload []byte) error {
	tmp := w.fileName + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write stats file: %w", err)
	}
	if err := os.Rename(tmp, w.fileName); err != nil {
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}
