package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"collection-kpi/models"
	"collection-kpi/utils"
)

const (
	snapshotBatchSize = 50
	snapshotColumns   = 11
)

// PostgresWriter stores report snapshots in PostgreSQL.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := *retry
	if ping.Retryable == nil {
		ping.Retryable = transientPostgresError
	}
	if err := ping.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

// transientPostgresError rejects failures that another attempt cannot fix:
// bad credentials and a missing database.
func transientPostgresError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28", "3D":
			return false
		}
	}
	return true
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS kpi_runs (
			id                      UUID          PRIMARY KEY,
			source                  TEXT          NOT NULL DEFAULT '',
			as_of                   DATE          NOT NULL,
			overdue_threshold       NUMERIC(20,2) NOT NULL DEFAULT 0,
			units                   INTEGER       NOT NULL DEFAULT 0,
			registered_units        INTEGER       NOT NULL DEFAULT 0,
			agreement_value         NUMERIC(20,2) NOT NULL DEFAULT 0,
			demand_generated        NUMERIC(20,2) NOT NULL DEFAULT 0,
			net_payment             NUMERIC(20,2) NOT NULL DEFAULT 0,
			amount_overdue          NUMERIC(20,2) NOT NULL DEFAULT 0,
			overdue_above_threshold NUMERIC(20,2) NOT NULL DEFAULT 0,
			created_at              TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS kpi_booking_snapshots (
			run_id                   UUID          NOT NULL REFERENCES kpi_runs(id) ON DELETE CASCADE,
			booking_id               TEXT          NOT NULL,
			property_name            TEXT          NOT NULL DEFAULT '',
			customer_name            TEXT          NOT NULL DEFAULT '',
			registered               BOOLEAN       NOT NULL DEFAULT FALSE,
			agreement_value          NUMERIC(20,2) NOT NULL DEFAULT 0,
			demand_generated         NUMERIC(20,2) NOT NULL DEFAULT 0,
			budget_passed_not_raised NUMERIC(20,2) NOT NULL DEFAULT 0,
			expected_future_demand   NUMERIC(20,2) NOT NULL DEFAULT 0,
			net_payment              NUMERIC(20,2) NOT NULL DEFAULT 0,
			amount_overdue           NUMERIC(20,2) NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, booking_id)
		);

		CREATE INDEX IF NOT EXISTS idx_kpi_runs_as_of ON kpi_runs(as_of);
	`)
	return err
}

// SaveRun stores the report header and one snapshot row per booking in a
// single transaction, and returns the new run ID.
func (pw *PostgresWriter) SaveRun(r *models.Report) (string, error) {
	runID := uuid.NewString()
	t := r.Totals

	tx, err := pw.db.Begin()
	if err != nil {
		return "", fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO kpi_runs (id, source, as_of, overdue_threshold, units, registered_units,
			agreement_value, demand_generated, net_payment, amount_overdue, overdue_above_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, runID, r.Source, r.AsOf, r.OverdueThreshold, t.Units.All, t.Units.Registered,
		t.AgreementValue.All, t.DemandGenerated.All, t.NetPayment.All, t.AmountOverdue.All,
		t.OverdueAboveThreshold.All)
	if err != nil {
		return "", fmt.Errorf("postgres: insert run: %w", err)
	}

	for i := 0; i < len(r.Bookings); i += snapshotBatchSize {
		end := min(i+snapshotBatchSize, len(r.Bookings))
		batch := r.Bookings[i:end]
		if _, err := tx.Exec(snapshotInsertQuery(len(batch)), snapshotArgs(runID, batch)...); err != nil {
			return "", fmt.Errorf("postgres: insert snapshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("postgres: commit: %w", err)
	}
	pw.logger.Info("[postgres] Stored run %s (%d bookings)", runID, len(r.Bookings))
	return runID, nil
}

func snapshotInsertQuery(n int) string {
	valueStrings := make([]string, 0, n)
	for idx := 0; idx < n; idx++ {
		base := idx * snapshotColumns
		ph := make([]string, snapshotColumns)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	return fmt.Sprintf(`
		INSERT INTO kpi_booking_snapshots (run_id, booking_id, property_name, customer_name, registered,
			agreement_value, demand_generated, budget_passed_not_raised, expected_future_demand,
			net_payment, amount_overdue)
		VALUES %s
	`, strings.Join(valueStrings, ","))
}

func snapshotArgs(runID string, batch []*models.BookingSummary) []interface{} {
	args := make([]interface{}, 0, len(batch)*snapshotColumns)
	for _, b := range batch {
		args = append(args,
			runID, b.BookingID, b.PropertyName, b.CustomerName, b.Registered,
			b.AgreementValue, b.DemandGenerated, b.BudgetPassedNotRaised, b.ExpectedFutureDemand,
			b.NetPayment, b.AmountOverdue)
	}
	return args
}

// FetchRuns returns the most recent runs, newest first.
func (pw *PostgresWriter) FetchRuns(limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := pw.db.Query(`
		SELECT id, source, as_of, overdue_threshold, units, registered_units, agreement_value,
			demand_generated, net_payment, amount_overdue, overdue_above_threshold, created_at
		FROM kpi_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run := &models.Run{}
		var asOf time.Time
		if err := rows.Scan(
			&run.ID, &run.Source, &asOf, &run.OverdueThreshold, &run.Units, &run.RegisteredUnits,
			&run.AgreementValue, &run.DemandGenerated, &run.NetPayment, &run.AmountOverdue,
			&run.OverdueAboveThreshold, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		run.AsOf = asOf.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
