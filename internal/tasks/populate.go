package tasks

import (
	"context"

	"github.com/desertthunder/rankify/internal/services"
	"github.com/desertthunder/rankify/internal/shared"
)

// BatchFailure records one append request that did not succeed.
type BatchFailure struct {
	Index int    `json:"index"` // 1-based
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// PopulationReport summarizes the append phase.
type PopulationReport struct {
	Attempted int            `json:"attempted"`
	Added     int            `json:"added"`
	Batches   int            `json:"batches"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}

// Batches splits ids into contiguous chunks of at most size items, preserving order.
//
// size is clamped to [1, [services.MaxAppendItems]]; zero or negative means the maximum.
func Batches(ids []string, size int) [][]string {
	if size <= 0 || size > services.MaxAppendItems {
		size = services.MaxAppendItems
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// Populator appends resolved tracks to a playlist in bounded batches.
type Populator struct {
	catalog   services.Catalog
	batchSize int
}

// NewPopulator creates a populator. See [Batches] for how batchSize is clamped.
func NewPopulator(catalog services.Catalog, batchSize int) *Populator {
	return &Populator{catalog: catalog, batchSize: batchSize}
}

// Populate submits ids to playlistID one batch at a time.
//
// A failed batch is recorded and the next one is still attempted. Once ctx is done the remaining
// batches are recorded as failed without being submitted. Batches already added stay added.
func (p *Populator) Populate(ctx context.Context, playlistID string, ids []string, progress chan<- ProgressUpdate) *PopulationReport {
	batches := Batches(ids, p.batchSize)
	report := &PopulationReport{Attempted: len(ids), Batches: len(batches)}

	for i, batch := range batches {
		index := i + 1

		err := ctx.Err()
		if err == nil {
			err = p.catalog.AppendItems(ctx, playlistID, batch)
		}

		if err != nil {
			failure := BatchFailure{
				Index: index,
				Size:  len(batch),
				Error: (&shared.BatchSubmissionError{Index: index, Size: len(batch), Err: err}).Error(),
			}
			report.Failed = append(report.Failed, failure)
			sendProgress(ctx, progress, batchFailedUpdate(len(batches), failure))
			continue
		}

		report.Added += len(batch)
		sendProgress(ctx, progress, batchAddedUpdate(index, len(batches), len(batch)))
	}

	return report
}
