package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	defaultBatchSize     = 1000
	defaultFlushInterval = 5 * time.Second
	defaultShutdownWait  = 10 * time.Second
	maxRetries           = 3
)

// AnomalyRow represents one row in the patterntrie_anomalies table: a
// flattened SampleDescription for a single non-matching line.
type AnomalyRow struct {
	DetectorName  string
	Line          string
	TokenStatuses []string
	TokenTexts    []string
	ObservedAt    time.Time
}

// BatchBuffer manages batched anomaly inserts into ClickHouse with
// automatic time- and size-based flushing.
type BatchBuffer struct {
	conn driver.Conn

	mu   sync.Mutex
	rows []AnomalyRow

	batchSize     int
	flushInterval time.Duration
	shutdownWait  time.Duration

	flushTimer *time.Timer
	stopCh     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewBatchBuffer creates a new batch buffer and starts its flush loop.
func NewBatchBuffer(conn driver.Conn, logger *slog.Logger) *BatchBuffer {
	if logger == nil {
		logger = slog.Default()
	}

	b := &BatchBuffer{
		conn:          conn,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		shutdownWait:  defaultShutdownWait,
		stopCh:        make(chan struct{}),
		logger:        logger,
	}

	b.flushTimer = time.NewTimer(b.flushInterval)

	b.wg.Add(1)
	go b.flushLoop()

	return b
}

// AddAnomaly adds a row to the buffer, flushing immediately if the batch
// size threshold is reached.
func (b *BatchBuffer) AddAnomaly(row AnomalyRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rows = append(b.rows, row)

	if len(b.rows) >= b.batchSize {
		return b.flushLocked()
	}
	return nil
}

func (b *BatchBuffer) flushLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.flushTimer.C:
			b.mu.Lock()
			_ = b.flushLocked()
			b.mu.Unlock()
			b.flushTimer.Reset(b.flushInterval)

		case <-b.stopCh:
			return
		}
	}
}

// flushLocked flushes the buffer (must hold lock).
func (b *BatchBuffer) flushLocked() error {
	if len(b.rows) == 0 {
		return nil
	}

	start := time.Now()
	rows := b.rows
	b.rows = nil

	b.mu.Unlock()
	err := b.insertAnomalies(rows)
	b.mu.Lock()

	if err != nil {
		b.logger.Error("failed to flush anomalies",
			"error", err,
			"row_count", len(rows),
		)
		return err
	}

	b.logger.Debug("flushed anomalies",
		"row_count", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close gracefully shuts down the buffer, flushing remaining data.
func (b *BatchBuffer) Close(ctx context.Context) error {
	var finalErr error

	b.closeOnce.Do(func() {
		close(b.stopCh)

		shutdownCtx, cancel := context.WithTimeout(ctx, b.shutdownWait)
		defer cancel()

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-shutdownCtx.Done():
			b.logger.Warn("flush loop did not stop within timeout")
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		finalErr = b.flushLocked()
	})

	return finalErr
}

func (b *BatchBuffer) insertAnomalies(rows []AnomalyRow) error {
	return b.retryInsert(func(ctx context.Context) error {
		batch, err := b.conn.PrepareBatch(ctx, "INSERT INTO patterntrie_anomalies")
		if err != nil {
			return err
		}

		for _, row := range rows {
			if err := batch.Append(
				row.DetectorName,
				row.Line,
				row.TokenStatuses,
				row.TokenTexts,
				row.ObservedAt,
			); err != nil {
				return err
			}
		}

		return batch.Send()
	})
}

// retryInsert retries an insert operation with exponential backoff.
func (b *BatchBuffer) retryInsert(fn func(context.Context) error) error {
	var err error
	retryDelay := 100 * time.Millisecond

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = fn(ctx)
		cancel()

		if err == nil {
			return nil
		}

		if attempt < maxRetries {
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}

	return fmt.Errorf("insert failed after %d attempts: %w", maxRetries, err)
}
