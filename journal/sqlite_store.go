// Package journal keeps a session log of commits in SQLite. The default DSN
// is an in-memory database that disappears with the process.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"listingpilot/review"
)

const MemoryDSN = ":memory:"

var ErrCommitNotFound = errors.New("commit not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Commit is one recorded commit.
type Commit struct {
	BatchID       uuid.UUID `json:"batchId"`
	Mode          string    `json:"mode"`
	RowsCommitted int       `json:"rowsCommitted"`
	Written       int       `json:"written"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	FlushError    string    `json:"flushError,omitempty"`
	CommittedAt   time.Time `json:"committedAt"`
}

func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS commits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL UNIQUE,
	mode TEXT NOT NULL,
	rows_committed INTEGER NOT NULL CHECK(rows_committed >= 0),
	written INTEGER NOT NULL CHECK(written >= 0),
	skipped INTEGER NOT NULL CHECK(skipped >= 0),
	failed INTEGER NOT NULL CHECK(failed >= 0),
	flush_error TEXT NOT NULL DEFAULT '',
	committed_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cell_outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id INTEGER NOT NULL REFERENCES commits(id) ON DELETE CASCADE,
	proposal_id INTEGER NOT NULL,
	row_index INTEGER NOT NULL,
	column_index INTEGER NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('written', 'skipped', 'failed')),
	error TEXT NOT NULL DEFAULT ''
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordCommit stores report and its cell outcomes in one transaction.
func (s *Store) RecordCommit(report review.CommitReport, mode string) error {
	if report.BatchID == uuid.Nil {
		return fmt.Errorf("commit batch id is required")
	}

	flushError := ""
	if report.FlushErr != nil {
		flushError = report.FlushErr.Error()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	res, err := tx.Exec(`
INSERT INTO commits (
	batch_id,
	mode,
	rows_committed,
	written,
	skipped,
	failed,
	flush_error,
	committed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		report.BatchID.String(),
		mode,
		report.RowsCommitted,
		report.Written,
		report.Skipped,
		report.Failed,
		flushError,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert commit: %w", err)
	}
	commitID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read inserted commit id: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO cell_outcomes (
	commit_id,
	proposal_id,
	row_index,
	column_index,
	field,
	value,
	status,
	error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare outcome statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range report.Entries {
		if _, err := stmt.Exec(
			commitID,
			entry.ProposalID,
			entry.Row,
			entry.Column,
			entry.Field,
			entry.Value,
			string(entry.Status),
			entry.Err,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert outcome for row %d field %q: %w", entry.Row, entry.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListCommits returns recorded commits, oldest first.
func (s *Store) ListCommits() ([]Commit, error) {
	const query = `
SELECT
	batch_id,
	mode,
	rows_committed,
	written,
	skipped,
	failed,
	flush_error,
	committed_at
FROM commits
ORDER BY id;
`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := make([]Commit, 0, 16)
	for rows.Next() {
		var (
			batchRaw     string
			committedRaw string
			commit       Commit
		)
		if err := rows.Scan(
			&batchRaw,
			&commit.Mode,
			&commit.RowsCommitted,
			&commit.Written,
			&commit.Skipped,
			&commit.Failed,
			&commit.FlushError,
			&committedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}

		commit.BatchID, err = uuid.Parse(batchRaw)
		if err != nil {
			return nil, fmt.Errorf("parse batch id %q: %w", batchRaw, err)
		}
		commit.CommittedAt, err = time.Parse(time.RFC3339Nano, committedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse committed at %q: %w", committedRaw, err)
		}
		commits = append(commits, commit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// CellOutcomes returns the outcomes of one commit in write order.
func (s *Store) CellOutcomes(batchID uuid.UUID) ([]review.CellOutcome, error) {
	var commitID int64
	err := s.db.QueryRow(`SELECT id FROM commits WHERE batch_id = ?;`, batchID.String()).Scan(&commitID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("query commit %s: %w", batchID, err)
	}

	const query = `
SELECT
	proposal_id,
	row_index,
	column_index,
	field,
	value,
	status,
	error
FROM cell_outcomes
WHERE commit_id = ?
ORDER BY id;
`
	rows, err := s.db.Query(query, commitID)
	if err != nil {
		return nil, fmt.Errorf("query cell outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]review.CellOutcome, 0, 32)
	for rows.Next() {
		var (
			outcome review.CellOutcome
			status  string
		)
		if err := rows.Scan(
			&outcome.ProposalID,
			&outcome.Row,
			&outcome.Column,
			&outcome.Field,
			&outcome.Value,
			&status,
			&outcome.Err,
		); err != nil {
			return nil, fmt.Errorf("scan cell outcome: %w", err)
		}
		outcome.Status = review.CellStatus(status)
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cell outcomes: %w", err)
	}
	return outcomes, nil
}
