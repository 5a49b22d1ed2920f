package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	pkgch "SmartEnergy/pkg/clickhouse"
	applogger "SmartEnergy/pkg/logger"
)

const (
	readingsTable   = "readings"
	insertChunkSize = 2000
	defaultLimit    = 500
)

func readingsSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			recorded_at DateTime64(3, 'UTC'),
			meter       LowCardinality(String),
			source      LowCardinality(String),
			label       String,
			power       Float64,
			anomaly     Bool,
			reason      String
		) ENGINE = MergeTree
		ORDER BY (meter, recorded_at)
		TTL toDateTime(recorded_at) + INTERVAL 90 DAY`, table),
	}
}

// ClickHouseReadingArchive implements ReadingArchive backed by ClickHouse.
type ClickHouseReadingArchive struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

// NewClickHouseReadingArchive creates a new ClickHouseReadingArchive.
func NewClickHouseReadingArchive(ch *pkgch.Client, l *applogger.Logger) *ClickHouseReadingArchive {
	return &ClickHouseReadingArchive{client: ch, db: ch.DB(), table: readingsTable, l: l}
}

var _ domrepo.ReadingArchive = (*ClickHouseReadingArchive)(nil)

// Init creates the readings table if missing.
func (s *ClickHouseReadingArchive) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, readingsSchema(s.table))
}

// StoreBatch inserts readings in chunks of insertChunkSize rows.
func (s *ClickHouseReadingArchive) StoreBatch(ctx context.Context, readings []models.ArchivedReading) error {
	for start := 0; start < len(readings); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(readings) {
			end = len(readings)
		}
		q, args := buildInsert(s.table, readings[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert readings: %w", err)
		}
	}
	return nil
}

func buildInsert(table string, readings []models.ArchivedReading) (string, []interface{}) {
	values := make([]string, 0, len(readings))
	args := make([]interface{}, 0, len(readings)*7)
	for _, r := range readings {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.RecordedAt.UTC(), r.Meter, r.Source, r.Label, r.Power, r.Anomaly, r.Reason)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (recorded_at, meter, source, label, power, anomaly, reason) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

func where(q models.HistoryQuery) (string, []interface{}) {
	clause := "recorded_at >= ? AND recorded_at <= ?"
	args := []interface{}{q.From.UTC(), q.To.UTC()}
	if q.Meter != "" {
		clause += " AND meter = ?"
		args = append(args, q.Meter)
	}
	return clause, args
}

func limitOf(q models.HistoryQuery) int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

func buildHistoryQuery(table string, q models.HistoryQuery) (string, []interface{}) {
	clause, args := where(q)
	stmt := fmt.Sprintf(`SELECT recorded_at, meter, source, label, power, anomaly, reason
		FROM %s
		WHERE %s
		ORDER BY recorded_at DESC
		LIMIT ?`, table, clause)
	return stmt, append(args, limitOf(q))
}

func buildAggregateQuery(table string, q models.HistoryQuery, bucket domrepo.Bucket) (string, []interface{}) {
	clause, args := where(q)
	stmt := fmt.Sprintf(`SELECT toStartOfInterval(recorded_at, INTERVAL %d SECOND) AS bucket,
			avg(power), max(power), count()
		FROM %s
		WHERE %s
		GROUP BY bucket
		ORDER BY bucket ASC
		LIMIT ?`, bucket.Seconds(), table, clause)
	return stmt, append(args, limitOf(q))
}

// Query returns raw readings in the range.
func (s *ClickHouseReadingArchive) Query(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedReading, error) {
	start := time.Now()
	stmt, args := buildHistoryQuery(s.table, q)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		s.l.Error("clickhouse history query error", applogger.String("meter", q.Meter), applogger.Error(err))
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.ArchivedReading, 0, limitOf(q))
	for rows.Next() {
		var r models.ArchivedReading
		if err := rows.Scan(&r.RecordedAt, &r.Meter, &r.Source, &r.Label, &r.Power, &r.Anomaly, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse history query ok",
		applogger.String("meter", q.Meter),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

// Aggregate returns mean power, peak power and count per bucket.
func (s *ClickHouseReadingArchive) Aggregate(ctx context.Context, q models.HistoryQuery, bucket domrepo.Bucket) ([]models.PowerBucket, error) {
	if bucket.Seconds() == 0 {
		return nil, fmt.Errorf("aggregate: unsupported bucket %q", bucket)
	}
	stmt, args := buildAggregateQuery(s.table, q, bucket)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		s.l.Error("clickhouse aggregate query error", applogger.String("bucket", string(bucket)), applogger.Error(err))
		return nil, fmt.Errorf("aggregate readings: %w", err)
	}
	defer rows.Close()

	out := []models.PowerBucket{}
	for rows.Next() {
		var b models.PowerBucket
		if err := rows.Scan(&b.Start, &b.AvgPower, &b.MaxPower, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *ClickHouseReadingArchive) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseReadingArchive) Close() error {
	return s.client.Close()
}
