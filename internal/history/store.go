package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverNameConstant             = "sqlite"
	storePathRequiredMessageConstant     = "ledger path must be provided"
	runIdentifierRequiredMessageConstant = "run identifier must be provided"
	storeOpenErrorTemplateConstant       = "unable to open run ledger: %w"
	storeInitErrorTemplateConstant       = "unable to initialize run ledger: %w"
	storeInsertErrorTemplateConstant     = "unable to record run: %w"
	storeQueryErrorTemplateConstant      = "unable to list runs: %w"
	storeScanErrorTemplateConstant       = "unable to read run row: %w"
	timestampLayoutConstant              = time.RFC3339

	ledgerDirectoryPermissionsConstant = 0o755
)

const journalModePragmaStatementConstant = `PRAGMA journal_mode=WAL;`

const createRunsTableStatementConstant = `CREATE TABLE IF NOT EXISTS sync_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL UNIQUE,
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	status TEXT NOT NULL,
	artifact_count INTEGER NOT NULL,
	commit_hash TEXT,
	failure_stage TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);`

const createRunsIndexStatementConstant = `CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);`

const insertRunStatementConstant = `INSERT INTO sync_runs
	(run_id, repository, branch, status, artifact_count, commit_hash, failure_stage, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`

const selectRecentRunsStatementConstant = `SELECT run_id, repository, branch, status, artifact_count, commit_hash, failure_stage, started_at, finished_at
	FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?;`

// RunStatus enumerates recorded run outcomes.
type RunStatus string

// Recorded run outcomes.
const (
	RunStatusSucceeded RunStatus = RunStatus("succeeded")
	RunStatusNoChanges RunStatus = RunStatus("no_changes")
	RunStatusFailed    RunStatus = RunStatus("failed")
)

// RunRecord captures the ledger row describing one pipeline execution.
type RunRecord struct {
	RunIdentifier string
	Repository    string
	Branch        string
	Status        RunStatus
	ArtifactCount int
	CommitHash    string
	FailureStage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store persists run records in a SQLite database.
type Store struct {
	database *sql.DB
}

// NewStore opens the ledger database at the provided path.
func NewStore(ledgerPath string) (*Store, error) {
	if len(strings.TrimSpace(ledgerPath)) == 0 {
		return nil, errors.New(storePathRequiredMessageConstant)
	}

	if directoryError := os.MkdirAll(filepath.Dir(ledgerPath), ledgerDirectoryPermissionsConstant); directoryError != nil {
		return nil, fmt.Errorf(storeOpenErrorTemplateConstant, directoryError)
	}

	database, openError := sql.Open(sqliteDriverNameConstant, ledgerPath)
	if openError != nil {
		return nil, fmt.Errorf(storeOpenErrorTemplateConstant, openError)
	}
	return &Store{database: database}, nil
}

// Init applies the ledger schema.
func (store *Store) Init(executionContext context.Context) error {
	statements := []string{
		journalModePragmaStatementConstant,
		createRunsTableStatementConstant,
		createRunsIndexStatementConstant,
	}
	for _, statement := range statements {
		if _, executionError := store.database.ExecContext(executionContext, statement); executionError != nil {
			return fmt.Errorf(storeInitErrorTemplateConstant, executionError)
		}
	}
	return nil
}

// RecordRun appends one run record to the ledger.
func (store *Store) RecordRun(executionContext context.Context, record RunRecord) error {
	if len(strings.TrimSpace(record.RunIdentifier)) == 0 {
		return errors.New(runIdentifierRequiredMessageConstant)
	}

	_, insertError := store.database.ExecContext(
		executionContext,
		insertRunStatementConstant,
		record.RunIdentifier,
		record.Repository,
		record.Branch,
		string(record.Status),
		record.ArtifactCount,
		record.CommitHash,
		record.FailureStage,
		record.StartedAt.UTC().Format(timestampLayoutConstant),
		record.FinishedAt.UTC().Format(timestampLayoutConstant),
	)
	if insertError != nil {
		return fmt.Errorf(storeInsertErrorTemplateConstant, insertError)
	}
	return nil
}

// ListRecentRuns returns up to limit records ordered most recent first.
func (store *Store) ListRecentRuns(executionContext context.Context, limit int) ([]RunRecord, error) {
	rows, queryError := store.database.QueryContext(executionContext, selectRecentRunsStatementConstant, limit)
	if queryError != nil {
		return nil, fmt.Errorf(storeQueryErrorTemplateConstant, queryError)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		var record RunRecord
		var status string
		var commitHash sql.NullString
		var failureStage sql.NullString
		var startedAt string
		var finishedAt string

		if scanError := rows.Scan(
			&record.RunIdentifier,
			&record.Repository,
			&record.Branch,
			&status,
			&record.ArtifactCount,
			&commitHash,
			&failureStage,
			&startedAt,
			&finishedAt,
		); scanError != nil {
			return nil, fmt.Errorf(storeScanErrorTemplateConstant, scanError)
		}

		record.Status = RunStatus(status)
		record.CommitHash = commitHash.String
		record.FailureStage = failureStage.String
		if parsedStartedAt, parseError := time.Parse(timestampLayoutConstant, startedAt); parseError == nil {
			record.StartedAt = parsedStartedAt
		}
		if parsedFinishedAt, parseError := time.Parse(timestampLayoutConstant, finishedAt); parseError == nil {
			record.FinishedAt = parsedFinishedAt
		}
		records = append(records, record)
	}
	if rowsError := rows.Err(); rowsError != nil {
		return nil, fmt.Errorf(storeQueryErrorTemplateConstant, rowsError)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (store *Store) Close() error {
	if store == nil || store.database == nil {
		return nil
	}
	return store.database.Close()
}
