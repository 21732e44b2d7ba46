// Package store persists detection results to PostgreSQL. It is an optional
// sink: the engine is fully functional without it, and the CLI only wires it
// when database.enabled is set.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL-backed result repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New verifies connectivity and returns a store.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// PersistResults writes a batch of detection results for a scan inside one
// transaction using a bulk copy.
func (s *Store) PersistResults(ctx context.Context, scanID string, results []schemas.DetectionResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		reasoning, err := json.Marshal(r.ReasoningFactors)
		if err != nil {
			return fmt.Errorf("failed to marshal reasoning factors for %s: %w", r.PackageName, err)
		}
		measures, err := json.Marshal(r.PreventiveMeasures)
		if err != nil {
			return fmt.Errorf("failed to marshal preventive measures for %s: %w", r.PackageName, err)
		}

		rows[i] = []interface{}{
			scanID, r.PackageName, r.PackageVersion,
			r.RiskScore, string(r.Severity), r.Confidence,
			reasoning, measures, r.EstimatedTimeframeDays,
			now,
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"detection_results"},
		[]string{"scan_id", "package_name", "package_version", "risk_score", "severity", "confidence", "reasoning", "preventive_measures", "timeframe_days", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy detection results: %w", err)
	}
	if int(copyCount) != len(results) {
		return fmt.Errorf("mismatch in copied result count: expected %d, got %d", len(results), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetResultsByScanID loads the persisted results of a scan, highest risk
// first.
func (s *Store) GetResultsByScanID(ctx context.Context, scanID string) ([]schemas.DetectionResult, error) {
	query := `
        SELECT package_name, package_version, risk_score, severity, confidence, reasoning, preventive_measures, timeframe_days
        FROM detection_results
        WHERE scan_id = $1
        ORDER BY risk_score DESC, package_name ASC;
    `
	rows, err := s.pool.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection results: %w", err)
	}
	defer rows.Close()

	var results []schemas.DetectionResult
	for rows.Next() {
		var r schemas.DetectionResult
		var severityStr string
		var reasoning, measures []byte

		if err := rows.Scan(
			&r.PackageName, &r.PackageVersion, &r.RiskScore,
			&severityStr, &r.Confidence,
			&reasoning, &measures, &r.EstimatedTimeframeDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		r.Severity = schemas.Severity(severityStr)
		if err := json.Unmarshal(reasoning, &r.ReasoningFactors); err != nil {
			return nil, fmt.Errorf("failed to decode reasoning factors: %w", err)
		}
		if err := json.Unmarshal(measures, &r.PreventiveMeasures); err != nil {
			return nil, fmt.Errorf("failed to decode preventive measures: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return results, nil
}
