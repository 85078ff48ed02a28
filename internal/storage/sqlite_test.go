package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSQLiteStoreModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "model.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveModel(ctx, fixtureRecord("m1")); err != nil {
		t.Fatalf("save model: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dbPath)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	loaded, ok, err := reopened.GetModel(ctx, "m1")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if !ok {
		t.Fatal("expected model m1")
	}
	if !reflect.DeepEqual(loaded, fixtureRecord("m1")) {
		t.Fatalf("unexpected model loaded: %+v", loaded)
	}

	latest, ok, err := reopened.LatestModel(ctx)
	if err != nil || !ok || latest.ID != "m1" {
		t.Fatalf("unexpected latest: %+v ok=%t err=%v", latest, ok, err)
	}

	if _, ok, err := reopened.GetModel(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing model, got ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreOverwritesModel(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "model.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	record := fixtureRecord("m1")
	if err := store.SaveModel(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.Clusters = record.Clusters[:1]
	if err := store.SaveModel(ctx, record); err != nil {
		t.Fatalf("resave: %v", err)
	}
	loaded, _, err := store.GetModel(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Clusters) != 1 {
		t.Fatalf("expected stale motif rows to be replaced, got %+v", loaded.Clusters)
	}
}

func TestSQLiteStoreRejectsGarbageFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "garbage.db")
	if err := os.WriteFile(dbPath, []byte("this is definitely not a sqlite database file, just text padding it out"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewSQLiteStore(dbPath)
	if err := store.Init(context.Background()); err == nil {
		_ = store.Close()
		t.Fatal("expected init error for garbage file")
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected path error")
	}
}
