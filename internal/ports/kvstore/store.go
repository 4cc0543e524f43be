package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Record es un snapshot serializado guardado bajo una llave fija.
// El campo JSON "email" se conserva por compatibilidad con los respaldos
// existentes: el shim original guardaba los snapshots en la misma tabla
// que los usuarios.
type Record struct {
	Key        string          `json:"email"`
	List       json.RawMessage `json:"list"`
	LastUpdate int64           `json:"lastUpdate"`
}

// Store es el colaborador externo de persistencia (llave-valor).
// Cualquier llamada puede fallar; los dueños de estado tratan esos
// fallos como no-fatales.
type Store interface {
	Find(ctx context.Context, key string) (Record, error)
	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, key string, rec Record) error
	Remove(ctx context.Context, key string) error
}
