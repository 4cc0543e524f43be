package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/rueidis"

	"tribu-ledger/internal/ports/kvstore"
)

// keyPrefix evita choques con otras llaves en la misma instancia.
const keyPrefix = "tribu:snapshot:"

// KVStore guarda cada snapshot como un string JSON en Redis. Insert usa
// SET NX y Update SET XX, para conservar la semántica upsert de los
// dueños de estado.
type KVStore struct {
	client rueidis.Client
}

func NewKVStore(addr string) (*KVStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, err
	}
	return &KVStore{client: client}, nil
}

func (s *KVStore) Close() {
	s.client.Close()
}

func (s *KVStore) Find(ctx context.Context, key string) (kvstore.Record, error) {
	cmd := s.client.B().Get().Key(keyPrefix + key).Build()
	raw, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return kvstore.Record{}, kvstore.ErrNotFound
		}
		return kvstore.Record{}, err
	}

	var rec kvstore.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return kvstore.Record{}, err
	}
	return rec, nil
}

func (s *KVStore) Insert(ctx context.Context, rec kvstore.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(keyPrefix + rec.Key).Value(string(raw)).Nx().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			// SET NX sobre llave existente responde nil
			return kvstore.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *KVStore) Update(ctx context.Context, key string, rec kvstore.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(keyPrefix + key).Value(string(raw)).Xx().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return kvstore.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	cmd := s.client.B().Del().Key(keyPrefix + key).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return err
	}
	if n == 0 {
		return kvstore.ErrNotFound
	}
	return nil
}
