package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hongsheng-mining/mill-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS shift_reports (
	id         TEXT PRIMARY KEY,
	shift_date TEXT NOT NULL,
	shift_type TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (shift_date, shift_type)
);

CREATE INDEX IF NOT EXISTS idx_shift_reports_date ON shift_reports(shift_date);
CREATE INDEX IF NOT EXISTS idx_shift_reports_type ON shift_reports(shift_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, p model.ReportPayload) (*StoredReport, error) {
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal payload")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO shift_reports (id, shift_date, shift_type, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (shift_date, shift_type)
		 DO UPDATE SET payload = excluded.payload, updated_at = now()
		 RETURNING id, payload, created_at, updated_at`,
		uuid.New().String(), p.ShiftDate, p.ShiftType, payloadJSON,
	)
	return scanPgReport(row)
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]StoredReport, error) {
	query := `SELECT id, payload, created_at, updated_at FROM shift_reports WHERE 1=1`
	var args []any

	if filter.From != "" {
		args = append(args, filter.From)
		query += ` AND shift_date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		query += ` AND shift_date <= $` + strconv.Itoa(len(args))
	}
	if filter.ShiftType != "" {
		args = append(args, filter.ShiftType)
		query += ` AND shift_type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY shift_date, shift_type`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		r, err := scanPgReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: iterate reports")
}

func scanPgReport(row rowScanner) (*StoredReport, error) {
	var (
		r           StoredReport
		payloadJSON []byte
	)
	if err := row.Scan(&r.ID, &payloadJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan report")
	}
	if err := json.Unmarshal(payloadJSON, &r.Payload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal payload")
	}
	return &r, nil
}
