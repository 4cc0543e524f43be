package ledger

import (
	"context"
	"sync"
	"time"
)

// EditState es el candado de seguridad de un pago existente. Editar
// historial contable ya asentado exige una confirmación explícita.
type EditState string

const (
	EditLocked           EditState = "locked"
	EditConfirmingEdit   EditState = "confirming_edit"
	EditEditing          EditState = "editing"
	EditConfirmingFinish EditState = "confirming_finish"
)

// DefaultRefreshDelay coalesce las ediciones rápidas de un pago en un
// solo refresco de la ficha.
const DefaultRefreshDelay = 800 * time.Millisecond

// Manager media la ficha de detalle de un caminante: orquesta Store y
// Calc para esa vista, mantiene el candado de edición por pago y el
// flujo de borrado en dos pasos. No es dueño de los datos.
type Manager struct {
	store *Store

	mu               sync.Mutex
	selectedWalkerID int64
	editStates       map[int64]EditState
	pendingDeletes   map[int64]struct{}

	refresh      debouncer
	refreshDelay time.Duration

	// OnRefresh se invoca (debounced) tras editar un pago, con el
	// caminante afectado. Opcional.
	OnRefresh func(walkerID int64)
}

func NewManager(store *Store) *Manager {
	return &Manager{
		store:          store,
		editStates:     map[int64]EditState{},
		pendingDeletes: map[int64]struct{}{},
		refreshDelay:   DefaultRefreshDelay,
	}
}

// ViewDetail selecciona al caminante y arma su ficha.
func (m *Manager) ViewDetail(walkerID int64, fallbackRate float64) (DetailView, error) {
	w, ok := m.store.GetWalker(walkerID)
	if !ok {
		return DetailView{}, ErrWalkerNotFound
	}
	ev, ok := m.store.GetCurrentEvent()
	if !ok {
		return DetailView{}, ErrNoCurrentEvent
	}

	m.mu.Lock()
	m.selectedWalkerID = walkerID
	m.mu.Unlock()

	return DetailViewModel(w, ev, fallbackRate, m.PaymentState), nil
}

// CloseDetail limpia la selección y cancela refrescos pendientes.
func (m *Manager) CloseDetail() {
	m.refresh.stop()
	m.mu.Lock()
	m.selectedWalkerID = 0
	m.mu.Unlock()
}

func (m *Manager) SelectedWalkerID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedWalkerID
}

// AddPayment crea un pago nuevo: la primera vez es la Reserva, después
// Abonos. Nace expandido y editable (sin pasar por el candado).
func (m *Manager) AddPayment(ctx context.Context, walkerID int64, defaultRate float64) (Payment, error) {
	ev, ok := m.store.GetCurrentEvent()
	if !ok {
		return Payment{}, ErrNoCurrentEvent
	}
	w, ok := m.store.GetWalker(walkerID)
	if !ok {
		return Payment{}, ErrWalkerNotFound
	}

	tipo := KindReserva
	if w.HasReserva() {
		tipo = KindAbono
	}

	now := m.store.now()
	p := Payment{
		ID:           now.UnixMilli(),
		Tipo:         tipo,
		Monto:        0,
		Fecha:        now.Format("2006-01-02"),
		PayCurrency:  ev.Currency,
		ExchangeRate: defaultRate,
		Expanded:     true,
		IsEditing:    true,
	}

	if err := m.store.AddPayment(ctx, walkerID, p); err != nil {
		return Payment{}, err
	}

	m.mu.Lock()
	m.editStates[p.ID] = EditEditing
	m.mu.Unlock()

	return p, nil
}

func (m *Manager) TogglePayment(ctx context.Context, walkerID, paymentID int64) error {
	return m.store.TogglePaymentExpand(ctx, walkerID, paymentID)
}

// UpdatePayment escribe el campo de inmediato (el Store persiste) y
// agenda un refresco de vista debounced. Un tipo de cambio válido se
// propaga como nueva tasa global vía onRate.
func (m *Manager) UpdatePayment(ctx context.Context, walkerID, paymentID int64, field, value string, onRate func(float64)) error {
	p, err := m.store.UpdatePayment(ctx, walkerID, paymentID, field, value)
	if err != nil {
		return err
	}

	if field == "exchangeRate" && p.ExchangeRate > 0 && onRate != nil {
		onRate(p.ExchangeRate)
	}

	if m.OnRefresh != nil {
		m.refresh.trigger(m.refreshDelay, func() { m.OnRefresh(walkerID) })
	}
	return nil
}

// PaymentState devuelve el estado del candado. Un pago que el Manager
// no creó en esta sesión arranca bloqueado.
func (m *Manager) PaymentState(paymentID int64) EditState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.editStates[paymentID]; ok {
		return st
	}
	return EditLocked
}

// RequestEdit abre la advertencia de edición sobre un pago bloqueado.
func (m *Manager) RequestEdit(paymentID int64) error {
	return m.transition(paymentID, EditLocked, EditConfirmingEdit)
}

// ConfirmEdit desbloquea los campos tras la confirmación explícita.
func (m *Manager) ConfirmEdit(ctx context.Context, walkerID, paymentID int64) error {
	if err := m.transition(paymentID, EditConfirmingEdit, EditEditing); err != nil {
		return err
	}
	return m.store.SetPaymentEditing(ctx, walkerID, paymentID, true)
}

// RequestFinish pide re-bloquear un pago en edición.
func (m *Manager) RequestFinish(paymentID int64) error {
	return m.transition(paymentID, EditEditing, EditConfirmingFinish)
}

// ConfirmFinish vuelve a bloquear los campos.
func (m *Manager) ConfirmFinish(ctx context.Context, walkerID, paymentID int64) error {
	if err := m.transition(paymentID, EditConfirmingFinish, EditLocked); err != nil {
		return err
	}
	return m.store.SetPaymentEditing(ctx, walkerID, paymentID, false)
}

// CancelEdit cierra el modal de confirmación y regresa al estado
// estable previo. Sobre un estado estable no hace nada.
func (m *Manager) CancelEdit(paymentID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.editStates[paymentID] {
	case EditConfirmingEdit:
		m.editStates[paymentID] = EditLocked
	case EditConfirmingFinish:
		m.editStates[paymentID] = EditEditing
	}
}

func (m *Manager) transition(paymentID int64, from, to EditState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.editStates[paymentID]
	if !ok {
		current = EditLocked
	}
	if current != from {
		return ErrBadState
	}
	m.editStates[paymentID] = to
	return nil
}

// --- borrado de pagos (dos pasos) ---

// RequestDeletePayment abre la confirmación de borrado.
func (m *Manager) RequestDeletePayment(paymentID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingDeletes[paymentID] = struct{}{}
}

// CancelDeletePayment descarta la confirmación pendiente.
func (m *Manager) CancelDeletePayment(paymentID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pendingDeletes, paymentID)
}

// ConfirmDeletePayment ejecuta el borrado; es inmediato y sin deshacer.
// Exige que el primer paso se haya pedido antes.
func (m *Manager) ConfirmDeletePayment(ctx context.Context, walkerID, paymentID int64) error {
	m.mu.Lock()
	_, requested := m.pendingDeletes[paymentID]
	m.mu.Unlock()
	if !requested {
		return ErrBadState
	}

	if err := m.store.DeletePayment(ctx, walkerID, paymentID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.pendingDeletes, paymentID)
	delete(m.editStates, paymentID)
	m.mu.Unlock()
	return nil
}
