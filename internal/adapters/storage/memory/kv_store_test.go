package memory

import (
	"context"
	"errors"
	"testing"

	"tribu-ledger/internal/ports/kvstore"
)

func TestKVStore_InsertUpdateSemantics(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()
	rec := kvstore.Record{Key: "k", List: []byte(`[]`), LastUpdate: 1}

	// Update sin registro previo falla: así el upsert de los dominios
	// (Update y luego Insert) se ejercita de verdad.
	if err := kv.Update(ctx, "k", rec); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("update sin registro: %v", err)
	}
	if err := kv.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := kv.Insert(ctx, rec); !errors.Is(err, kvstore.ErrAlreadyExists) {
		t.Fatalf("insert duplicado: %v", err)
	}

	rec.LastUpdate = 2
	if err := kv.Update(ctx, "k", rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := kv.Find(ctx, "k")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.LastUpdate != 2 {
		t.Fatalf("lastUpdate = %d", got.LastUpdate)
	}

	if err := kv.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := kv.Find(ctx, "k"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("find tras remove: %v", err)
	}
	if err := kv.Remove(ctx, "k"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("remove repetido: %v", err)
	}
}
