package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"airbnb-vacancy/models"
	"airbnb-vacancy/utils"
)

const metricsColumns = 10

// PostgresWriter persists per-run listing metrics to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations and returns a ready-to-use writer.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listing_metrics (
			run_id            UUID         NOT NULL,
			market            TEXT         NOT NULL,
			listing_id        BIGINT       NOT NULL,
			days_occupied     INTEGER,
			days_listed       INTEGER,
			vacancy_percent   NUMERIC(6,4),
			low_availability  BOOLEAN      NOT NULL DEFAULT FALSE,
			no_recent_reviews BOOLEAN      NOT NULL DEFAULT FALSE,
			likely_to_cancel  BOOLEAN      NOT NULL DEFAULT FALSE,
			computed_at       TIMESTAMPTZ  NOT NULL,
			PRIMARY KEY (run_id, listing_id)
		);

		CREATE INDEX IF NOT EXISTS idx_listing_metrics_market  ON listing_metrics(market);
		CREATE INDEX IF NOT EXISTS idx_listing_metrics_vacancy ON listing_metrics(vacancy_percent);
	`)
	return err
}

// Write batch-inserts the metrics of every listing under runID.
func (pw *PostgresWriter) Write(runID, market string, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	computedAt := time.Now().UTC()
	const batchSize = 500
	for i := 0; i < len(listings); i += batchSize {
		end := min(i+batchSize, len(listings))
		if err := pw.insertBatch(runID, market, computedAt, listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(runID, market string, computedAt time.Time, batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*metricsColumns)

	for idx, l := range batch {
		base := idx * metricsColumns
		placeholders := make([]string, metricsColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			runID, market, l.ID,
			nullInt(l.DaysOccupied), nullInt(l.DaysListed), nullFloat(l.VacancyPercent),
			l.LowAvailability, l.NoRecentReviews, l.LikelyToCancel, computedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO listing_metrics (run_id, market, listing_id, days_occupied, days_listed,
			vacancy_percent, low_availability, no_recent_reviews, likely_to_cancel, computed_at)
		VALUES %s
		ON CONFLICT (run_id, listing_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := pw.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert metrics: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
