package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/survey"
)

// SQLiteRunStore implements RunStore on a single SQLite file.
type SQLiteRunStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the history database at dbPath.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun upserts the report.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, report *survey.Report) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	sum := Summarize(report)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, created_at, statement, kind, provider, model,
			total_count, valid_count, point_estimate, ci_low, ci_high,
			target, cancelled, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.CreatedAt.UnixNano(), sum.Statement, string(sum.Kind), sum.Provider, sum.Model,
		sum.TotalCount, sum.ValidCount, sum.PointEstimate,
		nullFloat(sum.Interval.Low), nullFloat(sum.Interval.High),
		sum.Target, boolToInt(sum.Cancelled), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.ID, err)
	}
	return nil
}

// GetRun loads a report by full ID or unique prefix.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*survey.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		data, err = s.getByPrefix(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeReport([]byte(data))
}

func (s *SQLiteRunStore) getByPrefix(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return "", fmt.Errorf("failed to scan run: %w", err)
		}
		found = append(found, data)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
	}
}

// ListRuns returns summaries newest first without decoding full reports.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, created_at, statement, kind, provider, model,
		total_count, valid_count, point_estimate, ci_low, ci_high, target, cancelled
		FROM runs`)
	var args []any
	if opts.Kind != "" {
		query.WriteString(` WHERE kind = ?`)
		args = append(args, string(opts.Kind))
	}
	query.WriteString(` ORDER BY created_at DESC, id ASC LIMIT ?`)
	args = append(args, opts.limit())

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var (
			sum       RunSummary
			createdAt int64
			kind      string
			low, high sql.NullFloat64
			cancelled int
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Statement, &kind, &sum.Provider, &sum.Model,
			&sum.TotalCount, &sum.ValidCount, &sum.PointEstimate, &low, &high, &sum.Target, &cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		sum.Kind = models.QuestionKind(kind)
		sum.Interval = models.Interval{Low: floatPtr(low), High: floatPtr(high)}
		sum.Cancelled = cancelled != 0
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteRun removes a run by full ID.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
