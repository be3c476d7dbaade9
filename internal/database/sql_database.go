package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/testdino/insights/internal/runs"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Compile-time interface check.
var _ Database = (*SQLDatabase)(nil)

// SQLDatabase stores runs through database/sql. The schema and statements
// are shared across dialects; only auto-increment columns, conflict handling
// and placeholders differ.
type SQLDatabase struct {
	db      *sql.DB
	dialect string
}

func NewSQLDatabase(dialect, dsn string) (*SQLDatabase, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to an in-memory sqlite database is a new database.
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &SQLDatabase{db: db, dialect: dialect}
	if err := d.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return d, nil
}

func (d *SQLDatabase) InitSchema() error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	switch d.dialect {
	case DialectPostgres:
		seq = "seq BIGSERIAL PRIMARY KEY"
	case DialectMySQL:
		seq = "seq BIGINT AUTO_INCREMENT PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS test_runs (
			` + seq + `,
			id VARCHAR(255) NOT NULL UNIQUE,
			run_date VARCHAR(32) NOT NULL,
			branch VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS test_cases (
			run_id VARCHAR(255) NOT NULL,
			ordinal INTEGER NOT NULL,
			test_name VARCHAR(255) NOT NULL,
			category VARCHAR(32) NOT NULL,
			percentage INTEGER NOT NULL,
			duration VARCHAR(32),
			error_message TEXT,
			author VARCHAR(255),
			retry_count VARCHAR(16),
			PRIMARY KEY (run_id, ordinal)
		)`,
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS.
	if d.dialect != DialectMySQL {
		queries = append(queries,
			`CREATE INDEX IF NOT EXISTS idx_test_runs_branch ON test_runs(branch)`,
			`CREATE INDEX IF NOT EXISTS idx_test_cases_name ON test_cases(test_name)`,
		)
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

func (d *SQLDatabase) insertRunStatement() string {
	switch d.dialect {
	case DialectPostgres:
		return `INSERT INTO test_runs (id, run_date, branch) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`
	case DialectMySQL:
		return `INSERT IGNORE INTO test_runs (id, run_date, branch) VALUES (?, ?, ?)`
	}
	return `INSERT OR IGNORE INTO test_runs (id, run_date, branch) VALUES (?, ?, ?)`
}

func (d *SQLDatabase) InsertRun(ctx context.Context, run runs.Run) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, d.rebind(d.insertRunStatement()), run.TestRunID, run.Date, string(run.Branch))
	if err != nil {
		return false, fmt.Errorf("failed to insert run %s: %w", run.TestRunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, d.rebind(`
		INSERT INTO test_cases (run_id, ordinal, test_name, category, percentage, duration, error_message, author, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return false, fmt.Errorf("failed to prepare test case insert: %w", err)
	}
	defer stmt.Close()

	for i, tc := range run.TestCases {
		if _, err := stmt.ExecContext(ctx,
			run.TestRunID, i, tc.TestName, string(tc.Category), tc.Percentage,
			tc.Duration, string(tc.Error), string(tc.Author), tc.RetryCount,
		); err != nil {
			return false, fmt.Errorf("failed to insert test case %s/%s: %w", run.TestRunID, tc.TestName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit run %s: %w", run.TestRunID, err)
	}
	return true, nil
}

const selectRuns = `
	SELECT r.id, r.run_date, r.branch,
		c.test_name, c.category, c.percentage, c.duration, c.error_message, c.author, c.retry_count
	FROM test_runs r
	LEFT JOIN test_cases c ON c.run_id = r.id`

func (d *SQLDatabase) ListRuns(ctx context.Context, branch string) ([]runs.Run, error) {
	query := selectRuns
	var args []any
	if branch != "" && branch != "All" {
		query += ` WHERE r.branch = ?`
		args = append(args, branch)
	}
	query += ` ORDER BY r.seq, c.ordinal`

	return d.queryRuns(ctx, query, args...)
}

func (d *SQLDatabase) GetRun(ctx context.Context, id string) (*runs.Run, error) {
	found, err := d.queryRuns(ctx, selectRuns+` WHERE r.id = ? ORDER BY c.ordinal`, id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

func (d *SQLDatabase) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

func (d *SQLDatabase) Close() error {
	return d.db.Close()
}

func (d *SQLDatabase) queryRuns(ctx context.Context, query string, args ...any) ([]runs.Run, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	out := []runs.Run{}
	for rows.Next() {
		var id, date, branch string
		var name, category, duration, errMsg, author, retry sql.NullString
		var percentage sql.NullInt64
		if err := rows.Scan(&id, &date, &branch,
			&name, &category, &percentage, &duration, &errMsg, &author, &retry,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].TestRunID != id {
			out = append(out, runs.Run{
				TestRunID: id,
				Date:      date,
				Branch:    runs.Branch(branch),
				TestCases: []runs.TestCase{},
			})
		}
		if !name.Valid {
			continue
		}
		last := &out[len(out)-1]
		last.TestCases = append(last.TestCases, runs.TestCase{
			TestName:   name.String,
			Category:   runs.Category(category.String),
			Percentage: int(percentage.Int64),
			Duration:   duration.String,
			Error:      runs.ErrorMessage(errMsg.String),
			Author:     runs.Author(author.String),
			RetryCount: retry.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (d *SQLDatabase) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
