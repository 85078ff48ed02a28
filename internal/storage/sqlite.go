package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"smod/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps models in a single database file: a JSON header per
// model, the coefficient blob, and one row per retained motif.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveModel(ctx context.Context, record model.ModelRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	header, err := encodeHeader(record)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO models (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.ID, record.SchemaVersion, record.CodecVersion, header); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO weights (model_id, blob)
		VALUES (?, ?)
		ON CONFLICT(model_id) DO UPDATE SET
			blob = excluded.blob
	`, record.ID, record.Estimator.Weights); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM motifs WHERE model_id = ?`, record.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO motifs (model_id, cluster_id, rank, motif, count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, cluster := range record.Clusters {
		for rank, m := range cluster.Motifs {
			if _, err := stmt.ExecContext(ctx, record.ID, cluster.ID, rank, m.Motif, m.Count); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetModel(ctx context.Context, id string) (model.ModelRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ModelRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM models WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ModelRecord{}, false, nil
		}
		return model.ModelRecord{}, false, err
	}

	record, err := DecodeModel(payload)
	if err != nil {
		return model.ModelRecord{}, false, fmt.Errorf("decode model %s: %w", id, err)
	}

	err = db.QueryRowContext(ctx, `SELECT blob FROM weights WHERE model_id = ?`, id).Scan(&record.Estimator.Weights)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.ModelRecord{}, false, err
	}

	clusters, err := loadClusters(ctx, db, id)
	if err != nil {
		return model.ModelRecord{}, false, fmt.Errorf("load clusters %s: %w", id, err)
	}
	record.Clusters = clusters
	return record, true, nil
}

func (s *SQLiteStore) LatestModel(ctx context.Context) (model.ModelRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ModelRecord{}, false, err
	}

	var id string
	err = db.QueryRowContext(ctx, `SELECT id FROM models ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ModelRecord{}, false, nil
		}
		return model.ModelRecord{}, false, err
	}
	return s.GetModel(ctx, id)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func loadClusters(ctx context.Context, db *sql.DB, id string) ([]model.MotifCluster, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT cluster_id, motif, count FROM motifs
		WHERE model_id = ?
		ORDER BY cluster_id, rank
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []model.MotifCluster
	for rows.Next() {
		var (
			clusterID int
			m         model.MotifCount
		)
		if err := rows.Scan(&clusterID, &m.Motif, &m.Count); err != nil {
			return nil, err
		}
		if n := len(clusters); n == 0 || clusters[n-1].ID != clusterID {
			clusters = append(clusters, model.MotifCluster{ID: clusterID})
		}
		last := &clusters[len(clusters)-1]
		last.Motifs = append(last.Motifs, m)
	}
	return clusters, rows.Err()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS weights (
			model_id TEXT PRIMARY KEY,
			blob BLOB
		);
		CREATE TABLE IF NOT EXISTS motifs (
			model_id TEXT NOT NULL,
			cluster_id INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			motif TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (model_id, cluster_id, rank)
		);
	`)
	return err
}
