package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"RendaBot/internal/model"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log logrus.FieldLogger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			user_id     TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			balance     REAL,
			cdi         REAL,
			purchased   INTEGER,
			failed      INTEGER,
			skipped     INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			asset           TEXT,
			class           TEXT,
			contracted_rate TEXT,
			effective_rate  TEXT,
			min_investment  REAL,
			applied_amount  REAL,
			maturity        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_run ON purchases(run_id)`,

		`CREATE TABLE IF NOT EXISTS averages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			date       TEXT,
			class      TEXT,
			tax_exempt INTEGER,
			mean       REAL,
			formatted  TEXT,
			samples    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_averages_date ON averages(date)`,

		`CREATE TABLE IF NOT EXISTS attempts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			class     TEXT,
			asset     TEXT,
			reached   TEXT,
			reason    TEXT,
			amount    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts or replaces the run row, so it can be written at start and again at the end.
func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished any
	if !evt.FinishedAt.IsZero() {
		finished = evt.FinishedAt.Unix()
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(id, user_id, started_at, finished_at, balance, cdi, purchased, failed, skipped, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.UserID, evt.StartedAt.Unix(), finished, evt.Balance, evt.CDI,
		evt.Purchased, evt.Failed, evt.Skipped, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordPurchase(runID string, rec *model.PurchaseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO purchases
		(run_id, timestamp, asset, class, contracted_rate, effective_rate, min_investment, applied_amount, maturity)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		runID, rec.PurchasedAt.Unix(), rec.AssetName, rec.Class, rec.ContractedRate,
		rec.EffectiveRate, rec.MinInvestment, rec.AppliedAmount, rec.Maturity,
	)
	return err
}

func (r *SQLiteRecorder) RecordAverage(runID string, avg *model.AverageRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO averages
		(run_id, date, class, tax_exempt, mean, formatted, samples)
		VALUES (?,?,?,?,?,?,?)`,
		runID, avg.Date, avg.Class, avg.TaxExempt, avg.Mean, avg.Formatted, avg.Count,
	)
	return err
}

func (r *SQLiteRecorder) RecordAttempt(evt *AttemptEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO attempts
		(run_id, timestamp, class, asset, reached, reason, amount)
		VALUES (?,?,?,?,?,?,?)`,
		evt.RunID, time.Now().Unix(), evt.Class, evt.Asset, evt.Reached, evt.Reason, evt.Amount,
	)
	return err
}

func (r *SQLiteRecorder) LastRun() (*RunEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		evt      RunEvent
		started  int64
		finished sql.NullInt64
		errText  sql.NullString
		userID   sql.NullString
	)
	err := r.db.QueryRow(`SELECT id, user_id, started_at, finished_at, balance, cdi, purchased, failed, skipped, error
		FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(
		&evt.ID, &userID, &started, &finished, &evt.Balance, &evt.CDI,
		&evt.Purchased, &evt.Failed, &evt.Skipped, &errText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	evt.UserID = userID.String
	evt.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		evt.FinishedAt = time.Unix(finished.Int64, 0)
	}
	evt.Error = errText.String
	return &evt, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
