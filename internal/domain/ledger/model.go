package ledger

// Currency define las dos monedas soportadas. Los símbolos son los
// valores persistidos, no solo presentación.
type Currency string

const (
	CurrencyColones Currency = "¢"
	CurrencyDollars Currency = "$"
)

// Other devuelve la moneda espejo (para mostrar equivalentes).
func (c Currency) Other() Currency {
	if c == CurrencyDollars {
		return CurrencyColones
	}
	return CurrencyDollars
}

// PaymentKind define los tipos de pago.
type PaymentKind string

const (
	KindReserva PaymentKind = "Reserva"
	KindAbono   PaymentKind = "Abono"
)

// PaymentMethod es una cuenta de cobro (SINPE, cuenta bancaria, etc).
type PaymentMethod struct {
	Type   string `json:"type"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Payment es un abono o reserva de un caminante.
// Los IDs son milisegundos de reloj; se tolera la (improbable) colisión
// de dos creaciones en el mismo milisegundo.
type Payment struct {
	ID           int64       `json:"id"`
	Tipo         PaymentKind `json:"tipo"`
	Monto        float64     `json:"monto"`
	Fecha        string      `json:"fecha"` // YYYY-MM-DD
	PayCurrency  Currency    `json:"payCurrency"`
	ExchangeRate float64     `json:"exchangeRate"`
	Expanded     bool        `json:"expanded"`
	IsEditing    bool        `json:"isEditing"`
	Note         string      `json:"note"`
}

// Walker es un participante inscrito en una actividad.
type Walker struct {
	ID          int64     `json:"id"`
	Nombre      string    `json:"nombre"`
	Cedula      string    `json:"cedula"`
	Telefono    string    `json:"telefono"`
	Pagos       []Payment `json:"pagos"`
	IsCollapsed bool      `json:"isCollapsed"`
}

// HasReserva indica si el caminante ya registró su reserva.
func (w Walker) HasReserva() bool {
	for _, p := range w.Pagos {
		if p.Tipo == KindReserva {
			return true
		}
	}
	return false
}

// Event es una actividad (caminata, convivio, etc) con su configuración
// y la lista de participantes. Los tags JSON conservan la forma de los
// respaldos existentes.
type Event struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	MinCap             int             `json:"minCap"`
	MaxCap             string          `json:"maxCap"`
	Includes           []string        `json:"includes"`
	EventType          string          `json:"eventType"`
	Stage              string          `json:"stage"`
	Days               int             `json:"days"`
	DateStart          string          `json:"dateStart"`
	TimeStart          string          `json:"timeStart"`
	DateEnd            string          `json:"dateEnd"`
	TimeEnd            string          `json:"timeEnd"`
	Location           string          `json:"location"`
	LocationOther      string          `json:"locationOther"`
	Currency           Currency        `json:"currency"`
	Price              float64         `json:"price"`
	Reserve            float64         `json:"reserve"`
	PaymentMethods     []PaymentMethod `json:"paymentMethods"`
	Walkers            []Walker        `json:"walkers"`
	IsConfigCollapsed  bool            `json:"isConfigCollapsed"`
	IsWalkersCollapsed bool            `json:"isWalkersCollapsed"`
}

// EffectiveLocation resuelve el lugar real ("Otro" usa locationOther).
func (e Event) EffectiveLocation() string {
	if e.Location == LocationOther {
		return e.LocationOther
	}
	return e.Location
}
