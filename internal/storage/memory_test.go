package storage

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryStoreModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := fixtureRecord("m1")
	if err := store.SaveModel(ctx, input); err != nil {
		t.Fatalf("save model: %v", err)
	}
	input.Clusters[0].Motifs[0].Count = 99

	output, ok, err := store.GetModel(ctx, "m1")
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted model")
	}
	if !reflect.DeepEqual(output, fixtureRecord("m1")) {
		t.Fatalf("unexpected model: %+v", output)
	}

	latest, ok, err := store.LatestModel(ctx)
	if err != nil || !ok || latest.ID != "m1" {
		t.Fatalf("unexpected latest model: %+v ok=%t err=%v", latest, ok, err)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveModel(context.Background(), fixtureRecord("m1")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if _, ok, err := store.LatestModel(context.Background()); ok || err != nil {
		t.Fatalf("expected empty latest, got ok=%t err=%v", ok, err)
	}
}
