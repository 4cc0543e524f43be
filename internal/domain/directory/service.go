package directory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"tribu-ledger/internal/metrics"
	"tribu-ledger/internal/platform/logger"
	"tribu-ledger/internal/ports/kvstore"
)

// StoreKey es la llave del snapshot del directorio.
const StoreKey = "app_users_directory"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")
)

// RemoteAPI trae los miembros registrados en el backend remoto.
type RemoteAPI interface {
	FetchMembers(ctx context.Context) ([]User, error)
}

// Service mantiene el directorio en memoria con el mismo patrón que el
// ledger: snapshot completo al kvstore tras cada mutación, fallos de
// persistencia solo se registran.
type Service struct {
	mu     sync.Mutex
	kv     kvstore.Store
	remote RemoteAPI // puede ser nil (sin sync remoto)
	log    logger.Logger
	now    func() time.Time

	users []User
}

func NewService(kv kvstore.Store, remote RemoteAPI, log logger.Logger) *Service {
	return &Service{
		kv:     kv,
		remote: remote,
		log:    log.With(map[string]any{"component": "directory"}),
		now:    time.Now,
	}
}

// Init carga el snapshot; cualquier fallo deja el directorio vacío.
func (s *Service) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = []User{}

	rec, err := s.kv.Find(ctx, StoreKey)
	if err != nil || len(rec.List) == 0 {
		return
	}
	var users []User
	if err := json.Unmarshal(rec.List, &users); err != nil {
		s.log.Warn("directorio ilegible, se descarta", map[string]any{"err": err.Error()})
		return
	}
	s.users = users
}

func (s *Service) save(ctx context.Context) {
	metrics.SnapshotWrites.WithLabelValues(StoreKey).Inc()

	list, err := json.Marshal(s.users)
	if err != nil {
		metrics.SnapshotFailures.WithLabelValues(StoreKey).Inc()
		return
	}
	rec := kvstore.Record{Key: StoreKey, List: list, LastUpdate: s.now().UnixMilli()}

	if err := s.kv.Update(ctx, StoreKey, rec); err != nil {
		if err := s.kv.Insert(ctx, rec); err != nil {
			metrics.SnapshotFailures.WithLabelValues(StoreKey).Inc()
			s.log.Warn("persistencia de directorio falló", map[string]any{"err": err.Error()})
		}
	}
}

// List devuelve los miembros, los más nuevos primero.
func (s *Service) List() []User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, len(s.users))
	copy(out, s.users)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Search filtra por subcadena (sin distinguir mayúsculas) sobre nombre
// y primer apellido, o por cédula.
func (s *Service) Search(term string) []User {
	users := s.List()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users
	}

	out := make([]User, 0)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Nombre), term) ||
			strings.Contains(strings.ToLower(u.Apellido1), term) ||
			strings.Contains(u.Cedula, term) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Service) GetByID(id int64) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// CreateInput son los campos editables de un miembro.
type CreateInput struct {
	Nombre    string
	Apellido1 string
	Apellido2 string
	Cedula    string
	Movil     string
	Telefono  string
	Email     string
	Estado    string
}

// Create agrega un miembro normalizando sus campos.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	nombre := NormalizeName(in.Nombre)
	if nombre == "" {
		return User{}, ErrInvalidInput
	}

	u := User{
		ID:        s.now().UnixMilli(),
		Nombre:    nombre,
		Apellido1: NormalizeName(in.Apellido1),
		Apellido2: NormalizeName(in.Apellido2),
		Cedula:    strings.TrimSpace(in.Cedula),
		Movil:     NormalizePhone(in.Movil),
		Telefono:  NormalizePhone(in.Telefono),
		Email:     NormalizeEmail(in.Email),
		Estado:    in.Estado,
	}
	if u.Estado == "" {
		u.Estado = EstadoActivo
	}

	s.mu.Lock()
	s.users = append(s.users, u)
	s.save(ctx)
	s.mu.Unlock()
	return u, nil
}

// Update reemplaza los campos editables de un miembro.
func (s *Service) Update(ctx context.Context, id int64, in CreateInput) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID != id {
			continue
		}
		u := &s.users[i]
		if nombre := NormalizeName(in.Nombre); nombre != "" {
			u.Nombre = nombre
		}
		u.Apellido1 = NormalizeName(in.Apellido1)
		u.Apellido2 = NormalizeName(in.Apellido2)
		u.Cedula = strings.TrimSpace(in.Cedula)
		u.Movil = NormalizePhone(in.Movil)
		u.Telefono = NormalizePhone(in.Telefono)
		u.Email = NormalizeEmail(in.Email)
		if in.Estado != "" {
			u.Estado = in.Estado
		}
		s.save(ctx)
		return *u, nil
	}
	return User{}, ErrNotFound
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.users[:0]
	found := false
	for _, u := range s.users {
		if u.ID == id {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrNotFound
	}
	s.users = kept
	s.save(ctx)
	return nil
}

// SyncRemote trae el padrón remoto y agrega los miembros que aún no
// existen localmente (por llave de identidad). Devuelve cuántos entraron.
func (s *Service) SyncRemote(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, errors.New("remote directory not configured")
	}

	members, err := s.remote.FetchMembers(ctx)
	if err != nil {
		metrics.DirectorySyncs.WithLabelValues("error").Inc()
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.users))
	for _, u := range s.users {
		known[u.IdentityKey()] = struct{}{}
	}

	added := 0
	for _, m := range members {
		key := m.IdentityKey()
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		if m.ID == 0 {
			m.ID = s.now().UnixMilli() + int64(added)
		}
		if m.Estado == "" {
			m.Estado = EstadoActivo
		}
		s.users = append(s.users, m)
		known[key] = struct{}{}
		added++
	}

	if added > 0 {
		s.save(ctx)
	}
	metrics.DirectorySyncs.WithLabelValues("ok").Inc()
	s.log.Info("directorio sincronizado", map[string]any{"added": added, "remote": len(members)})
	return added, nil
}

// --- normalización de campos (reglas del formulario) ---

// NormalizeName deja solo letras y aplica TitleCase, sin espacios.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	runes := []rune(out)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// NormalizePhone deja solo dígitos, máximo 8.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() == 8 {
			break
		}
	}
	return b.String()
}

// NormalizeEmail baja a minúsculas y quita espacios.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
