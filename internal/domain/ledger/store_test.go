package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tribu-ledger/internal/platform/logger"
	"tribu-ledger/internal/ports/kvstore"
)

// fakeKV implementa kvstore.Store en memoria, con un switch para
// simular un backend caído.
type fakeKV struct {
	mu      sync.Mutex
	recs    map[string]kvstore.Record
	failAll bool

	inserts int
	updates int
}

func newFakeKV() *fakeKV {
	return &fakeKV{recs: map[string]kvstore.Record{}}
}

func (f *fakeKV) Find(_ context.Context, key string) (kvstore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return kvstore.Record{}, errors.New("kv down")
	}
	rec, ok := f.recs[key]
	if !ok {
		return kvstore.Record{}, kvstore.ErrNotFound
	}
	return rec, nil
}

func (f *fakeKV) Insert(_ context.Context, rec kvstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failAll {
		return errors.New("kv down")
	}
	if _, ok := f.recs[rec.Key]; ok {
		return kvstore.ErrAlreadyExists
	}
	f.recs[rec.Key] = rec
	return nil
}

func (f *fakeKV) Update(_ context.Context, key string, rec kvstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failAll {
		return errors.New("kv down")
	}
	if _, ok := f.recs[key]; !ok {
		return kvstore.ErrNotFound
	}
	f.recs[key] = rec
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, key)
	return nil
}

func (f *fakeKV) stored(t *testing.T, key string) []Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[key]
	if !ok {
		t.Fatalf("no hay snapshot bajo %q", key)
	}
	var events []Event
	if err := json.Unmarshal(rec.List, &events); err != nil {
		t.Fatalf("snapshot ilegible: %v", err)
	}
	return events
}

func newTestStore(t *testing.T) (*Store, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	s := NewStore(kv, logger.Nop())
	s.now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }
	s.Init(context.Background())
	return s, kv
}

func addTestEvent(t *testing.T, s *Store) Event {
	t.Helper()
	ev := Event{ID: 1000, Name: "Caminata", Currency: CurrencyColones, Price: 100000}
	s.AddEvent(context.Background(), ev)
	s.SetCurrentEvent(ev.ID)
	return ev
}

func TestStore_InitSurvivesBrokenBackend(t *testing.T) {
	kv := newFakeKV()
	kv.failAll = true

	s := NewStore(kv, logger.Nop())
	s.Init(context.Background())

	if got := s.GetAllEvents(); len(got) != 0 {
		t.Fatalf("eventos = %d, want 0", len(got))
	}
}

func TestStore_InitLoadsSnapshot(t *testing.T) {
	kv := newFakeKV()
	list, _ := json.Marshal([]Event{{ID: 7, Name: "Convivio"}})
	kv.recs[StoreKey] = kvstore.Record{Key: StoreKey, List: list}

	s := NewStore(kv, logger.Nop())
	s.Init(context.Background())

	events := s.GetAllEvents()
	if len(events) != 1 || events[0].Name != "Convivio" {
		t.Fatalf("events = %+v", events)
	}
}

func TestStore_SaveUpserts(t *testing.T) {
	s, kv := newTestStore(t)

	// Primera escritura: Update falla (no existe) y cae a Insert.
	addTestEvent(t, s)
	if kv.updates != 1 || kv.inserts != 1 {
		t.Fatalf("updates=%d inserts=%d, want 1/1", kv.updates, kv.inserts)
	}

	// Segunda escritura: Update directo.
	s.AddEvent(context.Background(), Event{ID: 2000})
	if kv.updates != 2 || kv.inserts != 1 {
		t.Fatalf("updates=%d inserts=%d, want 2/1", kv.updates, kv.inserts)
	}
}

func TestStore_MutationsSurviveBrokenBackend(t *testing.T) {
	s, kv := newTestStore(t)
	kv.failAll = true

	// El estado en memoria avanza aunque la persistencia falle.
	s.AddEvent(context.Background(), Event{ID: 5, Name: "Sin respaldo"})
	if got := s.GetAllEvents(); len(got) != 1 {
		t.Fatalf("eventos = %d, want 1", len(got))
	}
}

func TestStore_AddEventPrepends(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddEvent(context.Background(), Event{ID: 1})
	s.AddEvent(context.Background(), Event{ID: 2})

	events := s.GetAllEvents()
	if events[0].ID != 2 || events[1].ID != 1 {
		t.Fatalf("orden = %d,%d, want 2,1 (lo nuevo primero)", events[0].ID, events[1].ID)
	}
}

func TestStore_DeleteEventClearsSelection(t *testing.T) {
	s, _ := newTestStore(t)
	ev := addTestEvent(t, s)

	s.DeleteEvent(context.Background(), ev.ID)
	if s.CurrentEventID() != 0 {
		t.Fatal("borrar el evento actual debe limpiar la selección")
	}
	if _, ok := s.GetCurrentEvent(); ok {
		t.Fatal("no debería quedar evento actual")
	}
}

func TestStore_DeleteEventIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ev := addTestEvent(t, s)

	s.DeleteEvent(context.Background(), ev.ID)
	s.DeleteEvent(context.Background(), ev.ID) // segunda vez: no-op

	if got := s.GetAllEvents(); len(got) != 0 {
		t.Fatalf("eventos = %d, want 0", len(got))
	}
}

func TestStore_AddWalkerAllowsDuplicates(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)

	// La capa de datos no valida duplicados; esa regla vive en el
	// selector de directorio.
	w := Walker{ID: 1, Nombre: "Ana Mora", Cedula: "101110111"}
	if err := s.AddWalker(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	w.ID = 2
	if err := s.AddWalker(context.Background(), w); err != nil {
		t.Fatal(err)
	}

	ev, _ := s.GetCurrentEvent()
	if len(ev.Walkers) != 2 {
		t.Fatalf("walkers = %d, want 2", len(ev.Walkers))
	}
}

func TestStore_UpdateWalkerTitleCasesName(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1})

	if err := s.UpdateWalker(context.Background(), 1, "nombre", "juan PÉREZ solano"); err != nil {
		t.Fatal(err)
	}

	w, _ := s.GetWalker(1)
	if w.Nombre != "Juan Pérez Solano" {
		t.Fatalf("nombre = %q, want %q", w.Nombre, "Juan Pérez Solano")
	}

	// La cédula se guarda tal cual.
	_ = s.UpdateWalker(context.Background(), 1, "cedula", "1-0111-0111")
	w, _ = s.GetWalker(1)
	if w.Cedula != "1-0111-0111" {
		t.Fatalf("cedula = %q", w.Cedula)
	}
}

func TestStore_UpdateWalkerUnknownFieldIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1, Nombre: "Ana"})

	if err := s.UpdateWalker(context.Background(), 1, "apodo", "x"); err != nil {
		t.Fatal(err)
	}
	w, _ := s.GetWalker(1)
	if w.Nombre != "Ana" {
		t.Fatal("un campo desconocido no debe tocar nada")
	}
}

func TestStore_UpdatePaymentCoercesNumbers(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1})
	_ = s.AddPayment(context.Background(), 1, Payment{ID: 10, Monto: 500})

	// Basura en monto => 0, no error.
	p, err := s.UpdatePayment(context.Background(), 1, 10, "monto", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if p.Monto != 0 {
		t.Fatalf("monto = %v, want 0", p.Monto)
	}

	p, _ = s.UpdatePayment(context.Background(), 1, 10, "exchangeRate", "515.5")
	if p.ExchangeRate != 515.5 {
		t.Fatalf("exchangeRate = %v, want 515.5", p.ExchangeRate)
	}
}

func TestStore_GetWalkerReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1, Nombre: "Ana"})

	w, _ := s.GetWalker(1)
	w.Nombre = "Mutada"

	again, _ := s.GetWalker(1)
	if again.Nombre != "Ana" {
		t.Fatal("GetWalker debe devolver una copia")
	}
}

func TestStore_ReplaceDataPersists(t *testing.T) {
	s, kv := newTestStore(t)
	addTestEvent(t, s)

	s.ReplaceData(context.Background(), []Event{{ID: 99, Name: "Restaurado"}})

	events := kv.stored(t, StoreKey)
	if len(events) != 1 || events[0].ID != 99 {
		t.Fatalf("snapshot = %+v", events)
	}
}

func TestStore_OpsWithoutCurrentEvent(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.AddWalker(context.Background(), Walker{ID: 1}); !errors.Is(err, ErrNoCurrentEvent) {
		t.Fatalf("err = %v, want ErrNoCurrentEvent", err)
	}
	if err := s.UpdateCurrentEvent(context.Background(), EventPatch{}); !errors.Is(err, ErrNoCurrentEvent) {
		t.Fatalf("err = %v, want ErrNoCurrentEvent", err)
	}
}

func TestStore_UpdatePaymentIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1})
	_ = s.AddPayment(context.Background(), 1, Payment{ID: 10})

	first, err := s.UpdatePayment(context.Background(), 1, 10, "monto", "515.5")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.UpdatePayment(context.Background(), 1, 10, "monto", "515.5")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("repetir la edición cambió el pago: %+v vs %+v", first, second)
	}

	w, _ := s.GetWalker(1)
	if w.Pagos[0] != second {
		t.Fatalf("pago guardado %+v, want %+v", w.Pagos[0], second)
	}
}

func TestStore_ReadsAreDeepCopies(t *testing.T) {
	s, _ := newTestStore(t)
	addTestEvent(t, s)
	_ = s.AddWalker(context.Background(), Walker{ID: 1, Nombre: "Ana"})
	_ = s.AddPayment(context.Background(), 1, Payment{ID: 10})

	// Mutar los slices anidados de las copias no debe tocar el estado.
	w, _ := s.GetWalker(1)
	w.Pagos[0].ID = 999

	ev, _ := s.GetCurrentEvent()
	ev.Walkers[0].Nombre = "Mutada"
	ev.Walkers[0].Pagos[0].ID = 888
	if len(ev.Includes) > 0 {
		ev.Includes[0] = "mutado"
	}

	all := s.GetAllEvents()
	all[0].Walkers[0].Pagos[0].ID = 777

	again, _ := s.GetWalker(1)
	if again.Nombre != "Ana" || again.Pagos[0].ID != 10 {
		t.Fatalf("estado mutado a través de una lectura: %+v", again)
	}
	evAgain, _ := s.GetCurrentEvent()
	if len(evAgain.Includes) > 0 && evAgain.Includes[0] == "mutado" {
		t.Fatal("Includes comparte memoria con el estado")
	}
}
