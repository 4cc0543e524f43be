package postgres

import (
	"context"
	"database/sql"
	"errors"

	"tribu-ledger/internal/ports/kvstore"
)

// KVStore guarda los snapshots en una tabla llave-valor:
//
//	CREATE TABLE snapshots (
//	    key         TEXT PRIMARY KEY,
//	    list        JSONB NOT NULL,
//	    last_update BIGINT NOT NULL
//	);
type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Find(ctx context.Context, key string) (kvstore.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, list, last_update
		FROM snapshots
		WHERE key = $1
	`, key)

	var rec kvstore.Record
	var list []byte
	if err := row.Scan(&rec.Key, &list, &rec.LastUpdate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kvstore.Record{}, kvstore.ErrNotFound
		}
		return kvstore.Record{}, err
	}
	rec.List = list
	return rec, nil
}

func (s *KVStore) Insert(ctx context.Context, rec kvstore.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, list, last_update)
		VALUES ($1, $2, $3)
	`, rec.Key, []byte(rec.List), rec.LastUpdate)
	return err
}

func (s *KVStore) Update(ctx context.Context, key string, rec kvstore.Record) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE snapshots
		SET list = $2, last_update = $3
		WHERE key = $1
	`, key, []byte(rec.List), rec.LastUpdate)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kvstore.ErrNotFound
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE key = $1
	`, key)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kvstore.ErrNotFound
	}
	return nil
}
