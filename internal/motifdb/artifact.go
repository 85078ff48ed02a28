package motifdb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"smod/internal/estimator"
	"smod/internal/model"
	"smod/internal/storage"
	"smod/internal/vectorize"
)

// modelNamespace scopes content-derived model ids.
var modelNamespace = uuid.MustParse("5d1c0c7e-8f43-4b8e-9a51-2f6e4d0b7a19")

// Record snapshots the database for persistence. The id is derived from the
// content, so equal fits share an id.
func (db *Database) Record() (model.ModelRecord, error) {
	if db.est == nil {
		return model.ModelRecord{}, errors.New("database has no estimator")
	}
	state, err := db.est.State()
	if err != nil {
		return model.ModelRecord{}, fmt.Errorf("snapshot estimator: %w", err)
	}
	record := storage.Stamp(model.ModelRecord{
		Vectorizer: db.vec.Config().Settings(),
		Estimator:  state,
		Build:      db.build,
		Clusters:   db.Clusters(),
	})
	content, err := storage.EncodeModel(record)
	if err != nil {
		return model.ModelRecord{}, err
	}
	record.ID = uuid.NewSHA1(modelNamespace, content).String()
	return record, nil
}

// ID is the content-derived model id, empty for a match-only database.
func (db *Database) ID() string {
	record, err := db.Record()
	if err != nil {
		return ""
	}
	return record.ID
}

// FromRecord rebuilds a database from its persisted form.
func FromRecord(record model.ModelRecord) (*Database, error) {
	vec, err := vectorize.New(vectorize.FromSettings(record.Vectorizer))
	if err != nil {
		return nil, fmt.Errorf("%w: vectorizer: %v", model.ErrModelLoad, err)
	}
	est, err := estimator.FromState(record.Estimator, vec.Dim())
	if err != nil {
		return nil, fmt.Errorf("%w: estimator: %v", model.ErrModelLoad, err)
	}
	for i, c := range record.Clusters {
		if i > 0 && c.ID <= record.Clusters[i-1].ID {
			return nil, fmt.Errorf("%w: cluster ids out of order", model.ErrModelLoad)
		}
		for _, m := range c.Motifs {
			if m.Motif == "" || m.Count < 1 {
				return nil, fmt.Errorf("%w: malformed motif in cluster %d", model.ErrModelLoad, c.ID)
			}
		}
	}
	return New(vec, est, record.Build, record.Clusters), nil
}

// SaveTo writes the database into store and returns its id.
func (db *Database) SaveTo(ctx context.Context, store storage.Store) (string, error) {
	record, err := db.Record()
	if err != nil {
		return "", err
	}
	if err := store.SaveModel(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// LoadFrom reads the model with id from store, or the latest one when id
// is empty.
func LoadFrom(ctx context.Context, store storage.Store, id string) (*Database, error) {
	var (
		record model.ModelRecord
		ok     bool
		err    error
	)
	if id == "" {
		record, ok, err = store.LatestModel(ctx)
	} else {
		record, ok, err = store.GetModel(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no model stored", model.ErrModelLoad)
	}
	return FromRecord(record)
}

// Save writes the database as a single sqlite file at path, replacing any
// existing file.
func (db *Database) Save(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	store := storage.NewSQLiteStore(path)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	_, err := db.SaveTo(ctx, store)
	if closeErr := store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Load reads a database written by Save. A missing or malformed file fails
// with model.ErrModelLoad.
func Load(ctx context.Context, path string) (*Database, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrModelLoad, path)
	}
	store := storage.NewSQLiteStore(path)
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}
	defer store.Close()
	return LoadFrom(ctx, store, "")
}
