package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"tribu-ledger/internal/metrics"
	"tribu-ledger/internal/platform/logger"
	"tribu-ledger/internal/ports/kvstore"
)

// StoreKey es la llave única bajo la que se persiste todo el módulo.
const StoreKey = "app_events_store"

var (
	ErrNoCurrentEvent  = errors.New("no current event selected")
	ErrEventNotFound   = errors.New("event not found")
	ErrWalkerNotFound  = errors.New("walker not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Store es la única fuente de verdad del módulo de pagos: mantiene la
// lista de eventos en memoria y, tras cada mutación, intenta persistir
// un snapshot completo en el kvstore. Un fallo de persistencia se
// registra y se descarta: el estado en memoria nunca se revierte, el
// último escritor gana.
type Store struct {
	mu  sync.Mutex
	kv  kvstore.Store
	log logger.Logger
	now func() time.Time

	allEvents      []Event
	currentEventID int64 // 0 = sin selección
}

func NewStore(kv kvstore.Store, log logger.Logger) *Store {
	return &Store{
		kv:  kv,
		log: log.With(map[string]any{"component": "ledger.store"}),
		now: time.Now,
	}
}

// Init carga el snapshot persistido. Cualquier fallo (sin datos, datos
// corruptos, kvstore caído) deja la lista vacía; nunca es fatal.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allEvents = []Event{}

	rec, err := s.kv.Find(ctx, StoreKey)
	if err != nil {
		s.log.Warn("sin datos previos", map[string]any{"err": err.Error()})
		return
	}
	if len(rec.List) == 0 {
		return
	}

	var events []Event
	if err := json.Unmarshal(rec.List, &events); err != nil {
		s.log.Warn("snapshot ilegible, se descarta", map[string]any{"err": err.Error()})
		return
	}
	s.allEvents = events
}

// save serializa la lista completa y la sube con semántica upsert:
// update primero y, si falla, insert. El error final solo se registra.
// Debe llamarse con el mutex tomado.
func (s *Store) save(ctx context.Context) {
	metrics.SnapshotWrites.WithLabelValues(StoreKey).Inc()

	list, err := json.Marshal(s.allEvents)
	if err != nil {
		metrics.SnapshotFailures.WithLabelValues(StoreKey).Inc()
		s.log.Error("snapshot marshal", map[string]any{"err": err.Error()})
		return
	}

	rec := kvstore.Record{
		Key:        StoreKey,
		List:       list,
		LastUpdate: s.now().UnixMilli(),
	}

	if err := s.kv.Update(ctx, StoreKey, rec); err != nil {
		if err := s.kv.Insert(ctx, rec); err != nil {
			metrics.SnapshotFailures.WithLabelValues(StoreKey).Inc()
			s.log.Warn("persistencia falló, estado solo en memoria", map[string]any{"err": err.Error()})
		}
	}
}

// --- lecturas ---

// Las lecturas devuelven copias profundas: los slices anidados
// (caminantes, pagos, métodos de pago) no comparten memoria con el
// estado interno, así un lector no ve mutaciones a medio camino.

func (s *Store) GetAllEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.allEvents))
	for i, ev := range s.allEvents {
		out[i] = cloneEvent(ev)
	}
	return out
}

func (s *Store) GetCurrentEvent() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.currentLocked()
	if ev == nil {
		return Event{}, false
	}
	return cloneEvent(*ev), true
}

func (s *Store) GetWalker(walkerID int64) (Walker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walkerLocked(walkerID)
	if w == nil {
		return Walker{}, false
	}
	return cloneWalker(*w), true
}

func cloneEvent(ev Event) Event {
	out := ev
	out.Includes = append([]string(nil), ev.Includes...)
	out.PaymentMethods = append([]PaymentMethod(nil), ev.PaymentMethods...)
	out.Walkers = make([]Walker, len(ev.Walkers))
	for i, w := range ev.Walkers {
		out.Walkers[i] = cloneWalker(w)
	}
	return out
}

func cloneWalker(w Walker) Walker {
	out := w
	out.Pagos = append([]Payment(nil), w.Pagos...)
	return out
}

// SetCurrentEvent selecciona el evento activo (0 limpia la selección).
func (s *Store) SetCurrentEvent(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentEventID = id
}

func (s *Store) CurrentEventID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentEventID
}

// --- eventos ---

// AddEvent inserta al inicio de la lista (lo más nuevo primero).
func (s *Store) AddEvent(ctx context.Context, ev Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allEvents = append([]Event{ev}, s.allEvents...)
	s.save(ctx)
	return ev
}

// DeleteEvent elimina el evento y, si era el seleccionado, limpia la
// selección.
func (s *Store) DeleteEvent(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.allEvents[:0]
	for _, ev := range s.allEvents {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	s.allEvents = kept
	if s.currentEventID == id {
		s.currentEventID = 0
	}
	s.save(ctx)
}

// EventPatch aplica cambios parciales al evento actual. Punteros nil no
// tocan el campo.
type EventPatch struct {
	Name               *string
	MinCap             *int
	MaxCap             *string
	Includes           *[]string
	EventType          *string
	Stage              *string
	Days               *int
	DateStart          *string
	TimeStart          *string
	DateEnd            *string
	TimeEnd            *string
	Location           *string
	LocationOther      *string
	Currency           *Currency
	Price              *float64
	Reserve            *float64
	PaymentMethods     *[]PaymentMethod
	IsConfigCollapsed  *bool
	IsWalkersCollapsed *bool
}

func (s *Store) UpdateCurrentEvent(ctx context.Context, patch EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.currentLocked()
	if ev == nil {
		return ErrNoCurrentEvent
	}

	applyPatch(ev, patch)
	s.save(ctx)
	return nil
}

func applyPatch(ev *Event, p EventPatch) {
	if p.Name != nil {
		ev.Name = *p.Name
	}
	if p.MinCap != nil {
		ev.MinCap = *p.MinCap
	}
	if p.MaxCap != nil {
		ev.MaxCap = *p.MaxCap
	}
	if p.Includes != nil {
		ev.Includes = *p.Includes
	}
	if p.EventType != nil {
		ev.EventType = *p.EventType
	}
	if p.Stage != nil {
		ev.Stage = *p.Stage
	}
	if p.Days != nil {
		ev.Days = *p.Days
	}
	if p.DateStart != nil {
		ev.DateStart = *p.DateStart
	}
	if p.TimeStart != nil {
		ev.TimeStart = *p.TimeStart
	}
	if p.DateEnd != nil {
		ev.DateEnd = *p.DateEnd
	}
	if p.TimeEnd != nil {
		ev.TimeEnd = *p.TimeEnd
	}
	if p.Location != nil {
		ev.Location = *p.Location
	}
	if p.LocationOther != nil {
		ev.LocationOther = *p.LocationOther
	}
	if p.Currency != nil {
		ev.Currency = *p.Currency
	}
	if p.Price != nil {
		ev.Price = *p.Price
	}
	if p.Reserve != nil {
		ev.Reserve = *p.Reserve
	}
	if p.PaymentMethods != nil {
		ev.PaymentMethods = *p.PaymentMethods
	}
	if p.IsConfigCollapsed != nil {
		ev.IsConfigCollapsed = *p.IsConfigCollapsed
	}
	if p.IsWalkersCollapsed != nil {
		ev.IsWalkersCollapsed = *p.IsWalkersCollapsed
	}
}

// ReplaceData sustituye la lista completa (restauración de respaldo).
// El llamador ya validó que el JSON era un arreglo.
func (s *Store) ReplaceData(ctx context.Context, events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allEvents = events
	s.save(ctx)
}

// --- caminantes ---

// AddWalker agrega al evento actual. No valida duplicados: esa regla
// vive solo en la capa de directorio del controlador.
func (s *Store) AddWalker(ctx context.Context, w Walker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.currentLocked()
	if ev == nil {
		return ErrNoCurrentEvent
	}
	ev.Walkers = append(ev.Walkers, w)
	s.save(ctx)
	return nil
}

// UpdateWalker actualiza un campo de texto por nombre. El nombre del
// caminante se normaliza a TitleCase palabra por palabra.
func (s *Store) UpdateWalker(ctx context.Context, walkerID int64, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walkerLocked(walkerID)
	if w == nil {
		return ErrWalkerNotFound
	}

	switch field {
	case "nombre":
		w.Nombre = titleCase(value)
	case "cedula":
		w.Cedula = value
	case "telefono":
		w.Telefono = value
	default:
		// campos desconocidos se ignoran, igual que un typo en el form
	}
	s.save(ctx)
	return nil
}

func (s *Store) SetWalkerCollapsed(ctx context.Context, walkerID int64, collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walkerLocked(walkerID)
	if w == nil {
		return ErrWalkerNotFound
	}
	w.IsCollapsed = collapsed
	s.save(ctx)
	return nil
}

func (s *Store) DeleteWalker(ctx context.Context, walkerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.currentLocked()
	if ev == nil {
		return ErrNoCurrentEvent
	}

	kept := ev.Walkers[:0]
	for _, w := range ev.Walkers {
		if w.ID != walkerID {
			kept = append(kept, w)
		}
	}
	ev.Walkers = kept
	s.save(ctx)
	return nil
}

// --- pagos ---

func (s *Store) AddPayment(ctx context.Context, walkerID int64, p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walkerLocked(walkerID)
	if w == nil {
		return ErrWalkerNotFound
	}
	w.Pagos = append(w.Pagos, p)
	s.save(ctx)
	return nil
}

// UpdatePayment actualiza un campo por nombre. monto y exchangeRate se
// coercionan a numérico (0 si no parsea); el resto queda como texto.
// Devuelve el pago ya actualizado.
func (s *Store) UpdatePayment(ctx context.Context, walkerID, paymentID int64, field, value string) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.paymentLocked(walkerID, paymentID)
	if p == nil {
		return Payment{}, ErrPaymentNotFound
	}

	switch field {
	case "monto":
		p.Monto = parseAmount(value)
	case "exchangeRate":
		p.ExchangeRate = parseAmount(value)
	case "tipo":
		p.Tipo = PaymentKind(value)
	case "fecha":
		p.Fecha = value
	case "payCurrency":
		p.PayCurrency = Currency(value)
	case "note":
		p.Note = value
	}

	s.save(ctx)
	return *p, nil
}

func (s *Store) SetPaymentEditing(ctx context.Context, walkerID, paymentID int64, editing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.paymentLocked(walkerID, paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	p.IsEditing = editing
	s.save(ctx)
	return nil
}

func (s *Store) TogglePaymentExpand(ctx context.Context, walkerID, paymentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.paymentLocked(walkerID, paymentID)
	if p == nil {
		return ErrPaymentNotFound
	}
	p.Expanded = !p.Expanded
	s.save(ctx)
	return nil
}

func (s *Store) DeletePayment(ctx context.Context, walkerID, paymentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walkerLocked(walkerID)
	if w == nil {
		return ErrWalkerNotFound
	}

	kept := w.Pagos[:0]
	for _, p := range w.Pagos {
		if p.ID != paymentID {
			kept = append(kept, p)
		}
	}
	w.Pagos = kept
	s.save(ctx)
	return nil
}

// --- helpers internos (requieren el mutex tomado) ---

func (s *Store) currentLocked() *Event {
	if s.currentEventID == 0 {
		return nil
	}
	for i := range s.allEvents {
		if s.allEvents[i].ID == s.currentEventID {
			return &s.allEvents[i]
		}
	}
	return nil
}

func (s *Store) walkerLocked(walkerID int64) *Walker {
	ev := s.currentLocked()
	if ev == nil {
		return nil
	}
	for i := range ev.Walkers {
		if ev.Walkers[i].ID == walkerID {
			return &ev.Walkers[i]
		}
	}
	return nil
}

func (s *Store) paymentLocked(walkerID, paymentID int64) *Payment {
	w := s.walkerLocked(walkerID)
	if w == nil {
		return nil
	}
	for i := range w.Pagos {
		if w.Pagos[i].ID == paymentID {
			return &w.Pagos[i]
		}
	}
	return nil
}

// parseAmount coerciona texto a float; basura => 0.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// titleCase capitaliza cada palabra: "juan PÉREZ" => "Juan Pérez".
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		for j := 1; j < len(runes); j++ {
			runes[j] = unicode.ToLower(runes[j])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
