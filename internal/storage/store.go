package storage

import (
	"context"

	"smod/internal/model"
)

// Store persists fitted motif models.
type Store interface {
	Init(ctx context.Context) error
	SaveModel(ctx context.Context, record model.ModelRecord) error
	GetModel(ctx context.Context, id string) (model.ModelRecord, bool, error)
	LatestModel(ctx context.Context) (model.ModelRecord, bool, error)
}
