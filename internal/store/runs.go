package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/digest/internal/pipeline"
)

// RunSummary is one archived run as served by the status API.
type RunSummary struct {
	RunID         uuid.UUID `json:"run_id"`
	InputRef      string    `json:"input_ref"`
	OutputRef     string    `json:"output_ref"`
	TotalChunks   int       `json:"total_chunks"`
	TotalMessages int       `json:"total_messages"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}

// SaveRun archives a completed run and its partial analyses.
// Tables: analysis_runs, analysis_chunks.
func (s *Store) SaveRun(ctx context.Context, rec pipeline.RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_runs (id, input_ref, output_ref, total_chunks, total_messages, final_report, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.RunID, rec.InputRef, rec.OutputRef, rec.TotalChunks, rec.TotalMessages, rec.FinalReport, rec.StartedAt, rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range rec.Partials {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal chunk %d: %w", p.ChunkID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO analysis_chunks (id, run_id, chunk_id, message_count, payload)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), rec.RunID, p.ChunkID, p.MessageCount, payload,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", p.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LatestRuns returns the most recent archived runs, newest first.
func (s *Store) LatestRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, input_ref, output_ref, total_chunks, total_messages, started_at, duration_ms
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.InputRef, &r.OutputRef, &r.TotalChunks, &r.TotalMessages, &r.StartedAt, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetReport fetches the stored final report for one run.
func (s *Store) GetReport(ctx context.Context, runID uuid.UUID) (string, error) {
	var report string
	err := s.pool.QueryRow(ctx, `
		SELECT final_report FROM analysis_runs WHERE id = $1`, runID).Scan(&report)
	if err != nil {
		return "", fmt.Errorf("query report: %w", err)
	}
	return report, nil
}
