package ports

import (
	"context"

	"panelscore/models"
)

// ResultStore persists raw rater call records. The collector uses it
// for resume support; the parse stage reads the full batch back.
type ResultStore interface {
	Save(ctx context.Context, record *models.CallRecord) error
	Get(ctx context.Context, runID string) (*models.CallRecord, error)
	List(ctx context.Context) ([]*models.CallRecord, error)
}
