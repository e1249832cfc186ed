// Package clickhouse sinks anomaly events into a ClickHouse table for
// later querying, batching inserts the way high-volume telemetry pipelines
// do.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fidde/patterntrie/internal/anomaly"
	"github.com/fidde/patterntrie/pkg/patterntrie"
)

func statusFromString(s string) patterntrie.TokenStatus {
	switch s {
	case "mismatch":
		return patterntrie.StatusMismatch
	case "redundant":
		return patterntrie.StatusRedundant
	case "missing":
		return patterntrie.StatusMissing
	default:
		return patterntrie.StatusMatch
	}
}

// Store sinks anomaly.Event values into ClickHouse.
type Store struct {
	conn   driver.Conn
	buffer *BatchBuffer
	logger *slog.Logger
}

// NewStore connects to ClickHouse, ensures the schema exists, and returns
// a Store ready to accept events.
func NewStore(ctx context.Context, config *ConnectionConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := Connect(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to ClickHouse: %w", err)
	}

	if err := InitializeSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{
		conn:   conn,
		buffer: NewBatchBuffer(conn, logger),
		logger: logger,
	}, nil
}

// StoreEvent buffers an anomaly event for batched insertion.
func (s *Store) StoreEvent(ctx context.Context, ev *anomaly.Event) error {
	statuses := make([]string, len(ev.Description))
	texts := make([]string, len(ev.Description))
	for i, td := range ev.Description {
		statuses[i] = td.Status.String()
		texts[i] = td.Token
	}

	observed := ev.Observed
	if observed.IsZero() {
		observed = time.Now().UTC()
	}

	return s.buffer.AddAnomaly(AnomalyRow{
		DetectorName:  ev.DetectorName,
		Line:          ev.Line,
		TokenStatuses: statuses,
		TokenTexts:    texts,
		ObservedAt:    observed,
	})
}

// RecentAnomalies returns the most recent anomalies for a detector, newest
// first.
func (s *Store) RecentAnomalies(ctx context.Context, detectorName string, limit int) ([]*anomaly.Event, error) {
	query := `
		SELECT line, token_statuses, token_texts, observed_at
		FROM patterntrie_anomalies
		WHERE detector_name = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, detectorName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent anomalies: %w", err)
	}
	defer rows.Close()

	var events []*anomaly.Event
	for rows.Next() {
		var (
			line       string
			statuses   []string
			texts      []string
			observedAt time.Time
		)
		if err := rows.Scan(&line, &statuses, &texts, &observedAt); err != nil {
			return nil, fmt.Errorf("scanning anomaly row: %w", err)
		}

		desc := make(patterntrie.SampleDescription, len(statuses))
		for i := range statuses {
			desc[i] = patterntrie.TokenDescription{Status: statusFromString(statuses[i]), Token: texts[i]}
		}

		events = append(events, &anomaly.Event{
			DetectorName: detectorName,
			Line:         line,
			Description:  desc,
			Observed:     observedAt,
		})
	}
	return events, rows.Err()
}

// Close flushes any buffered rows and closes the connection.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.buffer.Close(ctx); err != nil {
		s.logger.Error("error flushing buffer on close", "error", err)
	}

	return s.conn.Close()
}
