package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// InitializeSchema creates the anomalies table if it doesn't exist.
func InitializeSchema(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, anomaliesTableDDL); err != nil {
		return fmt.Errorf("creating table patterntrie_anomalies: %w", err)
	}
	return nil
}

const anomaliesTableDDL = `
CREATE TABLE IF NOT EXISTS patterntrie_anomalies (
    detector_name String,
    line String,

    -- Flattened SampleDescription: one status per recognized token.
    token_statuses Array(LowCardinality(String)),
    token_texts    Array(String),

    observed_at DateTime64(3)

) ENGINE = MergeTree()
ORDER BY (detector_name, observed_at)
SETTINGS index_granularity = 8192
`
