package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tribu-ledger/internal/domain/directory"
	"tribu-ledger/internal/platform/logger"
)

// DefaultExchangeRate es el tipo de cambio inicial ¢/$ cuando nadie ha
// digitado uno todavía.
const DefaultExchangeRate = 530

// DefaultFieldDelay coalesce la edición de campos de texto del
// formulario antes de notificar a los observadores.
const DefaultFieldDelay = 500 * time.Millisecond

var (
	ErrMethodNotFound = errors.New("payment method not found")
	ErrAlreadyInList  = errors.New("person already in event list")
	ErrShortQuery     = errors.New("query too short")
)

// Controller orquesta el módulo completo: ciclo de vida de eventos,
// formulario de configuración, caminantes, flujos de confirmación de
// borrado y la integración con el directorio de miembros. Todo el
// estado ambiental (tipo de cambio recordado, flujos vivos) vive aquí,
// inyectado, nunca en variables de paquete.
type Controller struct {
	store   *Store
	manager *Manager
	master  *MasterSource
	dir     *directory.Service
	log     logger.Logger
	now     func() time.Time

	mu sync.Mutex
	// último tipo de cambio digitado; los pagos nuevos nacen con él
	lastExchangeRate float64
	flows            map[string]*confirmFlow

	fieldDelay   time.Duration
	fieldRefresh debouncer

	// OnConfigChanged se dispara, coalescido, tras editar campos de
	// texto del formulario o de un caminante. Puede ser nil.
	OnConfigChanged func()
}

func NewController(store *Store, manager *Manager, master *MasterSource, dir *directory.Service, log logger.Logger) *Controller {
	return &Controller{
		store:            store,
		manager:          manager,
		master:           master,
		dir:              dir,
		log:              log.With(map[string]any{"component": "ledger.controller"}),
		now:              time.Now,
		lastExchangeRate: DefaultExchangeRate,
		flows:            map[string]*confirmFlow{},
		fieldDelay:       DefaultFieldDelay,
	}
}

// SetDefaultExchangeRate fija el tipo de cambio inicial desde la
// configuración. Valores no positivos se ignoran.
func (c *Controller) SetDefaultExchangeRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.lastExchangeRate = rate
	c.mu.Unlock()
}

// LastExchangeRate devuelve el tipo de cambio recordado.
func (c *Controller) LastExchangeRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastExchangeRate
}

// noteRate memoriza un tipo de cambio válido digitado en cualquier pago.
func (c *Controller) noteRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.lastExchangeRate = rate
	c.mu.Unlock()
}

// --- ciclo de vida de eventos ---

// CreateEvent crea un evento con los valores por defecto del formulario
// y lo deja seleccionado.
func (c *Controller) CreateEvent(ctx context.Context) Event {
	md := c.master.Current()

	methods := make([]PaymentMethod, len(md.DefaultAccounts))
	copy(methods, md.DefaultAccounts)

	ev := Event{
		ID:             c.now().UnixMilli(),
		Name:           "Nuevo Evento",
		MinCap:         8,
		MaxCap:         "14",
		EventType:      "Caminata Recreativa",
		Days:           1,
		Location:       "Parque de Tres Ríos - Escuela",
		Currency:       CurrencyColones,
		Includes:       []string{},
		Walkers:        []Walker{},
		PaymentMethods: methods,
	}

	c.store.AddEvent(ctx, ev)
	c.store.SetCurrentEvent(ev.ID)
	c.log.Info("evento creado", map[string]any{"event_id": ev.ID})
	return ev
}

// OpenEvent selecciona un evento existente.
func (c *Controller) OpenEvent(id int64) (Event, error) {
	for _, ev := range c.store.GetAllEvents() {
		if ev.ID == id {
			c.store.SetCurrentEvent(id)
			return ev, nil
		}
	}
	return Event{}, ErrEventNotFound
}

// CloseEvent vuelve a la lista principal.
func (c *Controller) CloseEvent() {
	c.manager.CloseDetail()
	c.store.SetCurrentEvent(0)
}

// --- formulario de configuración ---

// configReshapeFields son los campos cuyo cambio altera la forma del
// formulario (aparecen u ocultan secciones enteras).
var configReshapeFields = map[string]bool{
	"eventType": true,
	"days":      true,
	"location":  true,
	"currency":  true,
}

// UpdateConfig actualiza un campo del evento actual por nombre, con la
// misma coerción numérica del formulario: basura en un campo numérico
// queda en cero. Devuelve true si el cambio reconfigura el formulario.
func (c *Controller) UpdateConfig(ctx context.Context, field, value string) (reshaped bool, err error) {
	var patch EventPatch

	switch field {
	case "name":
		patch.Name = &value
	case "minCap":
		n := int(parseAmount(value))
		patch.MinCap = &n
	case "maxCap":
		patch.MaxCap = &value
	case "eventType":
		patch.EventType = &value
	case "stage":
		patch.Stage = &value
	case "days":
		n := int(parseAmount(value))
		patch.Days = &n
	case "dateStart":
		patch.DateStart = &value
	case "timeStart":
		patch.TimeStart = &value
	case "dateEnd":
		patch.DateEnd = &value
	case "timeEnd":
		patch.TimeEnd = &value
	case "location":
		patch.Location = &value
	case "locationOther":
		patch.LocationOther = &value
	case "currency":
		cur := Currency(value)
		patch.Currency = &cur
	case "price":
		v := parseAmount(value)
		patch.Price = &v
	case "reserve":
		v := parseAmount(value)
		patch.Reserve = &v
	default:
		// campo desconocido: no-op, igual que un input sin binding
		return false, nil
	}

	if err := c.store.UpdateCurrentEvent(ctx, patch); err != nil {
		return false, err
	}

	c.notifyFieldChange()
	return configReshapeFields[field], nil
}

// ToggleInclude agrega o quita un ítem de la lista de incluidos.
func (c *Controller) ToggleInclude(ctx context.Context, item string) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}

	includes := make([]string, 0, len(ev.Includes)+1)
	found := false
	for _, it := range ev.Includes {
		if it == item {
			found = true
			continue
		}
		includes = append(includes, it)
	}
	if !found {
		includes = append(includes, item)
	}
	return c.store.UpdateCurrentEvent(ctx, EventPatch{Includes: &includes})
}

// AddPaymentMethod agrega una cuenta de cobro vacía al evento actual.
func (c *Controller) AddPaymentMethod(ctx context.Context) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}
	methods := append(append([]PaymentMethod{}, ev.PaymentMethods...), PaymentMethod{Type: "SINPE Móvil"})
	return c.store.UpdateCurrentEvent(ctx, EventPatch{PaymentMethods: &methods})
}

// UpdatePaymentMethod actualiza un campo de una cuenta de cobro por
// índice.
func (c *Controller) UpdatePaymentMethod(ctx context.Context, index int, field, value string) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}
	if index < 0 || index >= len(ev.PaymentMethods) {
		return ErrMethodNotFound
	}

	methods := append([]PaymentMethod{}, ev.PaymentMethods...)
	switch field {
	case "tipo":
		methods[index].Type = value
	case "numero":
		methods[index].Number = value
	case "nombre":
		methods[index].Name = value
	default:
		return nil
	}

	if err := c.store.UpdateCurrentEvent(ctx, EventPatch{PaymentMethods: &methods}); err != nil {
		return err
	}
	c.notifyFieldChange()
	return nil
}

// RemovePaymentMethod quita la cuenta de cobro en el índice dado.
func (c *Controller) RemovePaymentMethod(ctx context.Context, index int) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}
	if index < 0 || index >= len(ev.PaymentMethods) {
		return ErrMethodNotFound
	}
	methods := append(append([]PaymentMethod{}, ev.PaymentMethods[:index]...), ev.PaymentMethods[index+1:]...)
	return c.store.UpdateCurrentEvent(ctx, EventPatch{PaymentMethods: &methods})
}

// ToggleConfigCollapsed pliega o despliega la sección de configuración.
func (c *Controller) ToggleConfigCollapsed(ctx context.Context) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}
	v := !ev.IsConfigCollapsed
	return c.store.UpdateCurrentEvent(ctx, EventPatch{IsConfigCollapsed: &v})
}

// ToggleWalkersCollapsed pliega o despliega la lista de caminantes.
func (c *Controller) ToggleWalkersCollapsed(ctx context.Context) error {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ErrNoCurrentEvent
	}
	v := !ev.IsWalkersCollapsed
	return c.store.UpdateCurrentEvent(ctx, EventPatch{IsWalkersCollapsed: &v})
}

// --- caminantes ---

// AddWalker agrega un caminante vacío, listo para editar en línea.
func (c *Controller) AddWalker(ctx context.Context) (Walker, error) {
	w := Walker{
		ID:    c.now().UnixMilli(),
		Pagos: []Payment{},
	}
	if err := c.store.AddWalker(ctx, w); err != nil {
		return Walker{}, err
	}
	return w, nil
}

// UpdateWalkerField actualiza un campo de texto de un caminante.
func (c *Controller) UpdateWalkerField(ctx context.Context, walkerID int64, field, value string) error {
	if err := c.store.UpdateWalker(ctx, walkerID, field, value); err != nil {
		return err
	}
	c.notifyFieldChange()
	return nil
}

// ToggleWalkerCollapsed pliega o despliega la tarjeta de un caminante.
func (c *Controller) ToggleWalkerCollapsed(ctx context.Context, walkerID int64) error {
	w, ok := c.store.GetWalker(walkerID)
	if !ok {
		return ErrWalkerNotFound
	}
	return c.store.SetWalkerCollapsed(ctx, walkerID, !w.IsCollapsed)
}

// --- flujos de confirmación de borrado ---

// RequestDeleteEvent inicia el borrado de un evento: tres confirmaciones
// explícitas antes de ejecutar. Devuelve el token del flujo.
func (c *Controller) RequestDeleteEvent(eventID int64) (token string, err error) {
	found := false
	for _, ev := range c.store.GetAllEvents() {
		if ev.ID == eventID {
			found = true
			break
		}
	}
	if !found {
		return "", ErrEventNotFound
	}
	return c.startFlow(TargetEvent, eventID), nil
}

// RequestDeleteWalker inicia el borrado de un caminante del evento
// actual, también a tres pasos.
func (c *Controller) RequestDeleteWalker(walkerID int64) (token string, err error) {
	if _, ok := c.store.GetWalker(walkerID); !ok {
		return "", ErrWalkerNotFound
	}
	return c.startFlow(TargetWalker, walkerID), nil
}

func (c *Controller) startFlow(target ConfirmTarget, id int64) string {
	token := uuid.NewString()
	c.mu.Lock()
	c.flows[token] = &confirmFlow{
		Target:    target,
		TargetID:  id,
		State:     ConfirmStep1,
		CreatedAt: c.now(),
	}
	c.mu.Unlock()
	return token
}

// FlowState consulta el estado de un flujo vivo.
func (c *Controller) FlowState(token string) (ConfirmState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flows[token]
	if !ok {
		return "", ErrFlowNotFound
	}
	return f.State, nil
}

// ConfirmStep avanza un flujo de borrado. Cuando el último paso se
// confirma, la acción se ejecuta y el flujo desaparece.
func (c *Controller) ConfirmStep(ctx context.Context, token string) (done bool, state ConfirmState, err error) {
	c.mu.Lock()
	f, ok := c.flows[token]
	if !ok {
		c.mu.Unlock()
		return false, "", ErrFlowNotFound
	}

	done, err = f.advance()
	if err != nil {
		c.mu.Unlock()
		return false, f.State, err
	}
	state = f.State
	if done {
		delete(c.flows, token)
	}
	c.mu.Unlock()

	if !done {
		return false, state, nil
	}

	switch f.Target {
	case TargetEvent:
		c.store.DeleteEvent(ctx, f.TargetID)
		c.log.Info("evento borrado", map[string]any{"event_id": f.TargetID})
	case TargetWalker:
		if err := c.store.DeleteWalker(ctx, f.TargetID); err != nil {
			return true, state, err
		}
		c.log.Info("caminante borrado", map[string]any{"walker_id": f.TargetID})
	}
	return true, state, nil
}

// CancelFlow descarta un flujo en cualquier paso.
func (c *Controller) CancelFlow(token string) {
	c.mu.Lock()
	delete(c.flows, token)
	c.mu.Unlock()
}

// --- pagos (delegan al manager, conservando el tipo de cambio) ---

// AddPayment crea un pago nuevo con el tipo de cambio recordado.
func (c *Controller) AddPayment(ctx context.Context, walkerID int64) (Payment, error) {
	return c.manager.AddPayment(ctx, walkerID, c.LastExchangeRate())
}

// UpdatePayment actualiza un campo de un pago; un tipo de cambio válido
// se memoriza para los pagos siguientes.
func (c *Controller) UpdatePayment(ctx context.Context, walkerID, paymentID int64, field, value string) error {
	return c.manager.UpdatePayment(ctx, walkerID, paymentID, field, value, c.noteRate)
}

// WalkerDetail abre el detalle de un caminante con el tipo de cambio
// recordado como respaldo.
func (c *Controller) WalkerDetail(walkerID int64) (DetailView, error) {
	return c.manager.ViewDetail(walkerID, c.LastExchangeRate())
}

// --- vistas ---

func (c *Controller) MainList() []EventCard {
	return MainListView(c.store.GetAllEvents(), c.LastExchangeRate())
}

func (c *Controller) Walkers() (WalkerListView, error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return WalkerListView{}, ErrNoCurrentEvent
	}
	return WalkersView(ev), nil
}

func (c *Controller) ConfigView() (ConfigFormView, error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return ConfigFormView{}, ErrNoCurrentEvent
	}
	return ConfigForm(ev, c.master.Current()), nil
}

// --- respaldos y reportes ---

func (c *Controller) ExportBackup() (filename string, data []byte, err error) {
	return BackupJSON(c.store.GetAllEvents(), c.now())
}

// ImportBackup valida el respaldo y, solo si es válido, sustituye todo
// el estado. Un respaldo malo no toca nada.
func (c *Controller) ImportBackup(ctx context.Context, data []byte) error {
	events, err := ImportJSON(data)
	if err != nil {
		return err
	}
	c.store.ReplaceData(ctx, events)
	c.log.Info("respaldo restaurado", map[string]any{"events": len(events)})
	return nil
}

func (c *Controller) Receipt(walkerID int64) (filename, content string, err error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return "", "", ErrNoCurrentEvent
	}
	w, ok := c.store.GetWalker(walkerID)
	if !ok {
		return "", "", ErrWalkerNotFound
	}
	filename, content = ReceiptTXT(w, ev)
	return filename, content, nil
}

func (c *Controller) WalkerInvoice(walkerID int64) (Invoice, error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return Invoice{}, ErrNoCurrentEvent
	}
	w, ok := c.store.GetWalker(walkerID)
	if !ok {
		return Invoice{}, ErrWalkerNotFound
	}
	fins := WalkerFinancials(w, ev, c.LastExchangeRate())
	return InvoiceView(w, ev, fins, c.now()), nil
}

// --- directorio ---

// Autocomplete busca miembros del directorio; exige al menos dos
// caracteres para no listar todo el padrón.
func (c *Controller) Autocomplete(query string) ([]directory.User, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, ErrShortQuery
	}
	return c.dir.Search(query), nil
}

// DirectoryRows lista el directorio marcando quiénes ya están en el
// evento actual.
func (c *Controller) DirectoryRows() ([]DirectoryRow, error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return nil, ErrNoCurrentEvent
	}
	return DirectoryRowsView(c.dir.List(), ev), nil
}

// AddWalkerFromDirectory copia un miembro del directorio como
// caminante. Aquí sí se rechazan duplicados, por cédula o, a falta de
// cédula, por nombre completo.
func (c *Controller) AddWalkerFromDirectory(ctx context.Context, userID int64) (Walker, error) {
	ev, ok := c.store.GetCurrentEvent()
	if !ok {
		return Walker{}, ErrNoCurrentEvent
	}
	u, found := c.dir.GetByID(userID)
	if !found {
		return Walker{}, directory.ErrNotFound
	}

	existing := eventIdentityKeys(ev)
	if _, dup := existing[strings.ToLower(u.IdentityKey())]; dup {
		return Walker{}, ErrAlreadyInList
	}

	w := Walker{
		ID:       c.now().UnixMilli(),
		Nombre:   u.FullName(),
		Cedula:   u.Cedula,
		Telefono: u.Phone(),
		Pagos:    []Payment{},
	}
	if err := c.store.AddWalker(ctx, w); err != nil {
		return Walker{}, err
	}
	return w, nil
}

// notifyFieldChange coalesce las notificaciones de edición de texto.
func (c *Controller) notifyFieldChange() {
	if c.OnConfigChanged == nil {
		return
	}
	c.fieldRefresh.trigger(c.fieldDelay, c.OnConfigChanged)
}
