package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hongsheng-mining/mill-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS shift_reports (
	id         TEXT PRIMARY KEY,
	shift_date TEXT NOT NULL,
	shift_type TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (shift_date, shift_type)
);

CREATE INDEX IF NOT EXISTS idx_shift_reports_date ON shift_reports(shift_date);
CREATE INDEX IF NOT EXISTS idx_shift_reports_type ON shift_reports(shift_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, p model.ReportPayload) (*StoredReport, error) {
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal payload")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shift_reports (id, shift_date, shift_type, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (shift_date, shift_type)
		 DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id, p.ShiftDate, p.ShiftType, string(payloadJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert report %s %s", p.ShiftDate, p.ShiftType)
	}

	// The insert id loses on conflict; read back the surviving row.
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payload, created_at, updated_at FROM shift_reports WHERE shift_date = ? AND shift_type = ?`,
		p.ShiftDate, p.ShiftType,
	)
	return scanReport(row)
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]StoredReport, error) {
	query := `SELECT id, payload, created_at, updated_at FROM shift_reports WHERE 1=1`
	var args []any

	if filter.From != "" {
		query += ` AND shift_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND shift_date <= ?`
		args = append(args, filter.To)
	}
	if filter.ShiftType != "" {
		query += ` AND shift_type = ?`
		args = append(args, filter.ShiftType)
	}
	query += ` ORDER BY shift_date, shift_type`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: iterate reports")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*StoredReport, error) {
	var (
		r           StoredReport
		payloadJSON string
	)
	if err := row.Scan(&r.ID, &payloadJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan report")
	}
	if err := json.Unmarshal([]byte(payloadJSON), &r.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal payload")
	}
	return &r, nil
}
