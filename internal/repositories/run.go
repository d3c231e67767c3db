package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/rankify/internal/models"
	"github.com/desertthunder/rankify/internal/shared"
)

// ErrRunNotFound is returned when no live run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunRepository implements models.Repository[*models.Run] for run history.
//
// A run is stored across three tables (runs, run_items, run_batch_failures) and written in one transaction.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, playlist_id, playlist_name, artist, requested, resolved, added,
	failed_batches, dry_run, started_at, completed_at, created_at, updated_at, deleted_at
`

// Create inserts a run with its items and failures, assigning a generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(tx, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	run.SetSequence(sequence)

	query := `
		INSERT INTO runs (
			id, sequence, playlist_id, playlist_name, artist, requested, resolved,
			added, failed_batches, dry_run, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var playlistID any = run.PlaylistID()
	if playlistID == "" {
		playlistID = nil
	}

	_, err = tx.Exec(query,
		run.ID(),
		run.Sequence(),
		playlistID,
		run.PlaylistName(),
		run.Artist(),
		run.Requested(),
		run.Resolved(),
		run.Added(),
		run.FailedBatches(),
		run.DryRun(),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertChildren(tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID with its items and failures, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT` + runColumns + `FROM runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadChildren(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Update rewrites a run's counters and replaces its items and failures
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE runs
		SET playlist_id = ?, requested = ?, resolved = ?, added = ?, failed_batches = ?,
			dry_run = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	var playlistID any = run.PlaylistID()
	if playlistID == "" {
		playlistID = nil
	}

	result, err := tx.Exec(query,
		playlistID,
		run.Requested(),
		run.Resolved(),
		run.Added(),
		run.FailedBatches(),
		run.DryRun(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID())
	}

	for _, stmt := range []string{
		"DELETE FROM run_items WHERE run_id = ?",
		"DELETE FROM run_batch_failures WHERE run_id = ?",
	} {
		if _, err := tx.Exec(stmt, run.ID()); err != nil {
			return fmt.Errorf("failed to clear run details: %w", err)
		}
	}

	if err := insertChildren(tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "playlist_name" (string), "dry_run" (bool) and "limit" (int).
// Items and failures are not loaded; use [RunRepository.Get] for those.
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT` + runColumns + `FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["playlist_name"].(string); ok && name != "" {
		query += " AND playlist_name = ?"
		args = append(args, name)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		id            string
		sequence      int
		playlistID    sql.NullString
		playlistName  string
		artist        string
		requested     int
		resolved      int
		added         int
		failedBatches int
		dryRun        bool
		startedAt     time.Time
		completedAt   time.Time
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &playlistID, &playlistName, &artist, &requested, &resolved, &added,
		&failedBatches, &dryRun, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(playlistName, artist, startedAt)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetCounts(requested, resolved, added, failedBatches)
	run.SetDryRun(dryRun)
	run.SetCompletedAt(completedAt)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if playlistID.Valid {
		run.SetPlaylistID(playlistID.String)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func insertChildren(tx *sql.Tx, run *models.Run) error {
	for _, item := range run.Items() {
		var trackURI, reason any = item.TrackURI, item.Reason
		if item.TrackURI == "" {
			trackURI = nil
		}
		if item.Reason == "" {
			reason = nil
		}

		_, err := tx.Exec(`
			INSERT INTO run_items (run_id, position, rank, title, query, track_uri, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID(), item.Position, item.Rank, item.Title, item.Query, trackURI, reason)
		if err != nil {
			return fmt.Errorf("failed to insert run item %d: %w", item.Position, err)
		}
	}

	for _, f := range run.Failures() {
		_, err := tx.Exec(`
			INSERT INTO run_batch_failures (run_id, batch_index, size, error)
			VALUES (?, ?, ?, ?)
		`, run.ID(), f.Index, f.Size, f.Error)
		if err != nil {
			return fmt.Errorf("failed to insert batch failure %d: %w", f.Index, err)
		}
	}

	return nil
}

func (r *RunRepository) loadChildren(run *models.Run) error {
	rows, err := r.db.Query(`
		SELECT position, rank, title, query, track_uri, reason
		FROM run_items WHERE run_id = ? ORDER BY position
	`, run.ID())
	if err != nil {
		return fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	var items []models.RunItem
	for rows.Next() {
		var (
			item     models.RunItem
			trackURI sql.NullString
			reason   sql.NullString
		)
		if err := rows.Scan(&item.Position, &item.Rank, &item.Title, &item.Query, &trackURI, &reason); err != nil {
			return fmt.Errorf("failed to scan run item: %w", err)
		}
		item.TrackURI = trackURI.String
		item.Reason = reason.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	failureRows, err := r.db.Query(`
		SELECT batch_index, size, error
		FROM run_batch_failures WHERE run_id = ? ORDER BY batch_index
	`, run.ID())
	if err != nil {
		return fmt.Errorf("failed to query batch failures: %w", err)
	}
	defer failureRows.Close()

	var failures []models.BatchFailure
	for failureRows.Next() {
		var f models.BatchFailure
		if err := failureRows.Scan(&f.Index, &f.Size, &f.Error); err != nil {
			return fmt.Errorf("failed to scan batch failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := failureRows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	run.SetItems(items)
	run.SetFailures(failures)
	return nil
}
