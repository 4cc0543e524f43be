package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tribu-ledger/internal/domain/directory"
)

// View-models puros: estado => estructura lista para presentar. Nada de
// este archivo muta estado ni falla.

// EventCard es una tarjeta de la lista principal.
type EventCard struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	WalkerCount int      `json:"walkerCount"`
	Currency    Currency `json:"currency"`
	Total       float64  `json:"total"`
	TotalLabel  string   `json:"totalLabel"`
}

// MainListView arma la lista principal con el recaudado de cada evento.
func MainListView(events []Event, fallbackRate float64) []EventCard {
	cards := make([]EventCard, 0, len(events))
	for _, ev := range events {
		total := EventTotal(ev, fallbackRate)
		cards = append(cards, EventCard{
			ID:          ev.ID,
			Name:        ev.Name,
			WalkerCount: len(ev.Walkers),
			Currency:    ev.Currency,
			Total:       total,
			TotalLabel:  string(ev.Currency) + localeString(total),
		})
	}
	return cards
}

// WalkerRow es una fila del acordeón de participantes.
type WalkerRow struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Nombre      string `json:"nombre"`
	Cedula      string `json:"cedula"`
	Telefono    string `json:"telefono"`
	IsCollapsed bool   `json:"isCollapsed"`
}

// WalkerListView es el acordeón completo más su badge de conteo.
type WalkerListView struct {
	Badge string      `json:"badge"`
	Rows  []WalkerRow `json:"rows"`
}

// WalkersView arma el acordeón. El badge dice "Participantes" con la
// sección colapsada y "Personas" abierta.
func WalkersView(ev Event) WalkerListView {
	label := "Personas"
	if ev.IsWalkersCollapsed {
		label = "Participantes"
	}

	rows := make([]WalkerRow, 0, len(ev.Walkers))
	for i, w := range ev.Walkers {
		title := w.Nombre
		if title == "" {
			title = fmt.Sprintf("Participante %d", i+1)
		}
		rows = append(rows, WalkerRow{
			ID:          w.ID,
			Title:       title,
			Nombre:      w.Nombre,
			Cedula:      w.Cedula,
			Telefono:    w.Telefono,
			IsCollapsed: w.IsCollapsed,
		})
	}

	return WalkerListView{
		Badge: fmt.Sprintf("%d %s", len(ev.Walkers), label),
		Rows:  rows,
	}
}

// ConfigFormView refleja la regla "la forma del formulario depende de
// otros campos": un día muestra un solo par fecha/hora, varios días
// muestran salida y regreso; la etapa solo aplica al Camino de Costa
// Rica; el lugar libre solo cuando la salida es "Otro".
type ConfigFormView struct {
	Event Event `json:"event"`

	MultiDay          bool `json:"multiDay"`
	ShowStage         bool `json:"showStage"`
	ShowLocationOther bool `json:"showLocationOther"`

	DayOptions      []int           `json:"dayOptions"`
	MaxCaps         []string        `json:"maxCaps"`
	EventTypes      []string        `json:"eventTypes"`
	Stages          []string        `json:"stages"`
	Locations       []string        `json:"locations"`
	IncludesOptions []string        `json:"includesOptions"`
	PaymentMethods  []PaymentMethod `json:"paymentMethods"`
}

func ConfigForm(ev Event, md MasterData) ConfigFormView {
	days := make([]int, 0, 15)
	for d := 1; d <= 15; d++ {
		days = append(days, d)
	}

	return ConfigFormView{
		Event:             ev,
		MultiDay:          ev.Days > 1,
		ShowStage:         ev.EventType == EventTypeCamino,
		ShowLocationOther: ev.Location == LocationOther,
		DayOptions:        days,
		MaxCaps:           md.MaxCaps,
		EventTypes:        md.EventTypes,
		Stages:            md.Stages,
		Locations:         md.Locations,
		IncludesOptions:   md.IncludesOptions,
		PaymentMethods:    ev.PaymentMethods,
	}
}

// PaymentRowView es una fila del registro de pagos con su candado.
type PaymentRowView struct {
	Payment Payment   `json:"payment"`
	State   EditState `json:"state"`
	Locked  bool      `json:"locked"`
}

// DetailView es la ficha completa de un caminante, con los montos ya
// formateados en la moneda del evento y su espejo.
type DetailView struct {
	WalkerID int64  `json:"walkerId"`
	Nombre   string `json:"nombre"`
	Cedula   string `json:"cedula"`
	Telefono string `json:"telefono"`

	Currency      Currency `json:"currency"`
	OtherCurrency Currency `json:"otherCurrency"`

	EventTotalLabel string `json:"eventTotalLabel"`
	EventEquivLabel string `json:"eventEquivLabel"`
	PriceLabel      string `json:"priceLabel"`

	Abonado   string `json:"abonado"`
	Deuda     string `json:"deuda"`
	EqAbonado string `json:"eqAbonado"`
	EqDeuda   string `json:"eqDeuda"`

	Rows []PaymentRowView `json:"rows"`
}

// DetailViewModel arma la ficha. stateOf resuelve el candado de cada
// pago (nil => todos bloqueados).
func DetailViewModel(w Walker, ev Event, fallbackRate float64, stateOf func(int64) EditState) DetailView {
	fins := WalkerFinancials(w, ev, fallbackRate)
	evtTotal := EventTotal(ev, fallbackRate)
	evtEquiv := equivalent(evtTotal, ev.Currency, fallbackRate)

	rows := make([]PaymentRowView, 0, len(w.Pagos))
	for _, p := range w.Pagos {
		st := EditLocked
		if stateOf != nil {
			st = stateOf(p.ID)
		}
		rows = append(rows, PaymentRowView{
			Payment: p,
			State:   st,
			Locked:  st == EditLocked || st == EditConfirmingEdit,
		})
	}

	cur := ev.Currency
	return DetailView{
		WalkerID:      w.ID,
		Nombre:        w.Nombre,
		Cedula:        w.Cedula,
		Telefono:      w.Telefono,
		Currency:      cur,
		OtherCurrency: cur.Other(),

		EventTotalLabel: string(cur) + localeString(evtTotal),
		EventEquivLabel: string(cur.Other()) + formatEquiv(cur, evtEquiv),
		PriceLabel:      string(cur) + localeString(ev.Price),

		Abonado:   formatAmount(cur, fins.TotalPaid),
		Deuda:     formatAmount(cur, fins.Debt),
		EqAbonado: formatEquiv(cur, fins.EquivPaid),
		EqDeuda:   formatEquiv(cur, fins.EquivDebt),

		Rows: rows,
	}
}

// DirectoryRow es una fila del selector de miembros. Added marca los
// que ya están en el evento: se muestran deshabilitados con la
// insignia EN LISTA, no se rechazan en silencio.
type DirectoryRow struct {
	User     directory.User `json:"user"`
	Initials string         `json:"initials"`
	Added    bool           `json:"added"`
	Badge    string         `json:"badge,omitempty"`
}

// DirectoryRowsView marca duplicados contra el evento actual.
func DirectoryRowsView(users []directory.User, ev Event) []DirectoryRow {
	existing := eventIdentityKeys(ev)

	rows := make([]DirectoryRow, 0, len(users))
	for _, u := range users {
		_, added := existing[strings.ToLower(u.IdentityKey())]
		row := DirectoryRow{
			User:     u,
			Initials: initials(u),
			Added:    added,
		}
		if added {
			row.Badge = "EN LISTA"
		}
		rows = append(rows, row)
	}
	return rows
}

// eventIdentityKeys junta las llaves de identidad ya presentes en el
// evento: cédula, o nombre completo cuando no hay cédula. Las llaves
// se comparan en minúsculas.
func eventIdentityKeys(ev Event) map[string]struct{} {
	keys := make(map[string]struct{}, len(ev.Walkers))
	for _, w := range ev.Walkers {
		if w.Cedula != "" {
			keys[strings.ToLower(w.Cedula)] = struct{}{}
		} else if w.Nombre != "" {
			keys[strings.ToLower(strings.TrimSpace(w.Nombre))] = struct{}{}
		}
	}
	return keys
}

func initials(u directory.User) string {
	var b strings.Builder
	for _, s := range []string{u.Nombre, u.Apellido1} {
		r := []rune(strings.TrimSpace(s))
		if len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return b.String()
}

// --- formato de montos ---

// formatAmount presenta un monto en la moneda del evento: dólares con
// un decimal, colones agrupados en miles.
func formatAmount(cur Currency, v float64) string {
	if cur == CurrencyDollars {
		return fixed1(v)
	}
	return localeString(v)
}

// formatEquiv presenta el equivalente en la moneda espejo: hacia
// dólares con un decimal, hacia colones al piso y agrupados.
func formatEquiv(eventCur Currency, v float64) string {
	if eventCur == CurrencyColones {
		return fixed1(v)
	}
	return localeString(math.Floor(v))
}

func fixed1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// localeString agrupa miles con coma; enteros sin decimales, el resto
// con dos. Se formatea el valor completo de una sola vez para que el
// redondeo acarree hacia la parte entera (1.999 => "2", no "1.00").
func localeString(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	digits, dec, _ := strings.Cut(s, ".")
	out := groupThousands(digits)
	if dec != "00" {
		out += "." + dec
	}
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
