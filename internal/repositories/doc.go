// Package repositories implements SQLite persistence for run history.
//
// [RunRepository] stores each run with its per-title outcomes and failed batches, written atomically.
// Runs support soft deletes via deleted_at timestamps and are excluded from queries once deleted.
//
// [RunRecorderAdapter] converts a finished tasks.Summary into a [models.Run] so the pipeline can record
// runs without depending on this package.
//
// Sequence numbers provide stable, human-readable ordering (e.g. run #42) independent of UUIDs and timestamps.
// [NextSequence] increments per-table counters inside the caller's transaction.
package repositories
