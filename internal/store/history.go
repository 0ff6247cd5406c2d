package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/aciclean/pkg/models"
)

// RunRecord is one journaled purge run.
type RunRecord struct {
	ID         string           `json:"id"`
	Controller string           `json:"controller"`
	Scope      models.Scope     `json:"scope"`
	EPGDN      models.DN        `json:"epg_dn"`
	Status     models.RunStatus `json:"status"`
	DryRun     bool             `json:"dry_run"`
	Attempted  int              `json:"attempted"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// History records purge runs and their per-endpoint outcomes.
type History struct {
	store *SQLiteStore
}

// NewHistory migrates the history schema on s.
func NewHistory(ctx context.Context, s *SQLiteStore) (*History, error) {
	if err := s.Migrate(ctx, "history", historyMigrations()); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &History{store: s}, nil
}

func historyMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create purge_runs and purge_results",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE purge_runs (
						id          TEXT     PRIMARY KEY,
						controller  TEXT     NOT NULL DEFAULT '',
						tenant      TEXT     NOT NULL,
						app_profile TEXT     NOT NULL,
						epg         TEXT     NOT NULL,
						epg_dn      TEXT     NOT NULL,
						status      TEXT     NOT NULL,
						dry_run     INTEGER  NOT NULL DEFAULT 0,
						attempted   INTEGER  NOT NULL DEFAULT 0,
						succeeded   INTEGER  NOT NULL DEFAULT 0,
						failed      INTEGER  NOT NULL DEFAULT 0,
						error       TEXT     NOT NULL DEFAULT '',
						started_at  DATETIME NOT NULL,
						finished_at DATETIME NOT NULL
					)`,
					`CREATE INDEX idx_purge_runs_started ON purge_runs(started_at)`,
					`CREATE TABLE purge_results (
						run_id  TEXT    NOT NULL REFERENCES purge_runs(id) ON DELETE CASCADE,
						seq     INTEGER NOT NULL,
						dn      TEXT    NOT NULL,
						success INTEGER NOT NULL,
						detail  TEXT    NOT NULL DEFAULT '',
						PRIMARY KEY (run_id, seq)
					)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// RecordRun journals a finished run with one result row per attempted
// endpoint, in the order they were attempted.
func (h *History) RecordRun(ctx context.Context, r *models.PurgeReport, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	failed := make(map[models.DN]models.OperationResult, len(r.Failed))
	for _, f := range r.Failed {
		failed[f.DN] = f
	}

	return h.store.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purge_runs (
				id, controller, tenant, app_profile, epg, epg_dn, status, dry_run,
				attempted, succeeded, failed, error, started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Controller, r.Scope.Tenant, r.Scope.AppProfile, r.Scope.EPG, r.EPGDN.String(),
			string(models.ClassifyRun(r, runErr)), r.DryRun,
			len(r.Attempted), len(r.Succeeded), len(r.Failed), errText,
			r.StartedAt.UTC(), r.FinishedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", r.RunID, err)
		}

		for i, dn := range r.Attempted {
			res, ok := failed[dn]
			switch {
			case ok:
			case r.DryRun:
				res = models.OperationResult{DN: dn, Detail: "dry run"}
			default:
				res = models.OperationResult{DN: dn, Success: true}
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO purge_results (run_id, seq, dn, success, detail) VALUES (?, ?, ?, ?, ?)",
				r.RunID, i+1, dn.String(), res.Success, res.Detail,
			)
			if err != nil {
				return fmt.Errorf("insert result %s: %w", dn, err)
			}
		}
		return nil
	})
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.store.DB().QueryContext(ctx, `
		SELECT id, controller, tenant, app_profile, epg, epg_dn, status, dry_run,
		       attempted, succeeded, failed, error, started_at, finished_at
		FROM purge_runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec    RunRecord
			epgDN  string
			status string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Controller, &rec.Scope.Tenant, &rec.Scope.AppProfile, &rec.Scope.EPG,
			&epgDN, &status, &rec.DryRun, &rec.Attempted, &rec.Succeeded, &rec.Failed,
			&rec.Error, &rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.EPGDN = models.DN(epgDN)
		rec.Status = models.RunStatus(status)
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// RunResults returns the per-endpoint outcomes recorded for runID.
func (h *History) RunResults(ctx context.Context, runID string) ([]models.OperationResult, error) {
	rows, err := h.store.DB().QueryContext(ctx,
		"SELECT dn, success, detail FROM purge_results WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("list results for %s: %w", runID, err)
	}
	defer rows.Close()

	var results []models.OperationResult
	for rows.Next() {
		var (
			res models.OperationResult
			dn  string
		)
		if err := rows.Scan(&dn, &res.Success, &res.Detail); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.DN = models.DN(dn)
		results = append(results, res)
	}
	return results, rows.Err()
}
