package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tribu-ledger/internal/metrics"
)

// ErrInvalidBackup marca un respaldo que no es un arreglo de eventos.
var ErrInvalidBackup = errors.New("backup must be a JSON array of events")

// BackupJSON serializa todos los eventos para respaldo. El contenido es
// el arreglo completo con sangría de dos espacios.
func BackupJSON(events []Event, now time.Time) (filename string, data []byte, err error) {
	data, err = json.MarshalIndent(events, "", "  ")
	if err != nil {
		return "", nil, err
	}
	metrics.BackupsExported.Inc()
	return fmt.Sprintf("backup_tribuplay_%s.json", now.Format("2006-01-02")), data, nil
}

// ImportJSON valida y parsea un respaldo. Cualquier cosa que no sea un
// arreglo JSON se rechaza sin tocar el estado existente.
func ImportJSON(data []byte) ([]Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('[') {
		metrics.ImportsRejected.Inc()
		return nil, ErrInvalidBackup
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		metrics.ImportsRejected.Inc()
		return nil, ErrInvalidBackup
	}
	return events, nil
}

// ReceiptTXT genera el reporte plano de un caminante. El formato de
// cada línea de pago es estable:
//
//	<n>. <tipo>: <símbolo><monto> (TC: <tasa>)  [<fecha>]
func ReceiptTXT(w Walker, ev Event) (filename, content string) {
	cur := ev.Currency
	if cur == "" {
		cur = CurrencyColones
	}

	var b strings.Builder
	b.WriteString("TRIBUPLAY - REPORTE DE PAGOS\n")
	b.WriteString("============================\n")
	fmt.Fprintf(&b, "Actividad: %s\n", ev.Name)
	if ev.EventType != "" {
		line := "Tipo: " + ev.EventType
		if ev.Stage != "" {
			line += " - " + ev.Stage
		}
		b.WriteString(line + "\n")
	}

	if ev.Days > 0 {
		fmt.Fprintf(&b, "Duración: %d día(s)\n", ev.Days)
		if ev.Days == 1 {
			line := "Fecha: " + ev.DateStart
			if ev.TimeStart != "" {
				line += " @ " + ev.TimeStart
			}
			b.WriteString(line + "\n")
		} else {
			fmt.Fprintf(&b, "Salida: %s %s\n", ev.DateStart, ev.TimeStart)
			fmt.Fprintf(&b, "Regreso: %s %s\n", ev.DateEnd, ev.TimeEnd)
		}
	}

	if loc := ev.EffectiveLocation(); loc != "" {
		fmt.Fprintf(&b, "Lugar: %s\n", loc)
	}

	b.WriteString("\nDATOS DEL CLIENTE\n")
	fmt.Fprintf(&b, "Nombre: %s\n", w.Nombre)
	fmt.Fprintf(&b, "Cédula: %s\n", w.Cedula)
	fmt.Fprintf(&b, "Teléfono: %s\n", w.Telefono)
	fmt.Fprintf(&b, "Precio Paquete: %s%s\n", cur, plainNumber(ev.Price))
	b.WriteString("----------------------------\n")
	b.WriteString("DETALLE DE ABONOS:\n")

	for i, p := range w.Pagos {
		fecha := p.Fecha
		if fecha == "" {
			fecha = "N/A"
		}
		sym := p.PayCurrency
		if sym == "" {
			sym = cur
		}
		fmt.Fprintf(&b, "%d. %s: %s%s (TC: %s)  [%s]\n",
			i+1, p.Tipo, sym, plainNumber(p.Monto), plainNumber(p.ExchangeRate), fecha)
	}

	name := strings.TrimSpace(w.Nombre)
	if name == "" {
		name = "cliente"
	}
	filename = "pago_" + strings.ReplaceAll(name, " ", "_") + ".txt"
	return filename, b.String()
}

// InvoiceLine es un movimiento del comprobante, con el monto expresado
// en ambas monedas.
type InvoiceLine struct {
	Index     int         `json:"index"`
	Fecha     string      `json:"fecha"`
	Tipo      PaymentKind `json:"tipo"`
	RateLabel string      `json:"rateLabel"`
	Colones   string      `json:"colones"`
	Dolares   string      `json:"dolares"`
}

// Invoice es el comprobante de actividad de un caminante: solo campos
// derivados, ningún cálculo nuevo más allá de lo que Calc expone.
type Invoice struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`

	TypeText     string `json:"typeText"`
	EventName    string `json:"eventName"`
	LocationText string `json:"locationText"`

	SingleDay    bool   `json:"singleDay"`
	DateLabel    string `json:"dateLabel,omitempty"`
	TimeLabel    string `json:"timeLabel,omitempty"`
	SalidaLabel  string `json:"salidaLabel,omitempty"`
	RegresoLabel string `json:"regresoLabel,omitempty"`

	Includes []string        `json:"includes,omitempty"`
	Accounts []PaymentMethod `json:"accounts,omitempty"`

	ClientName  string `json:"clientName"`
	ClientID    string `json:"clientId"`
	ClientPhone string `json:"clientPhone"`

	PriceLabel string `json:"priceLabel"`
	PaidLabel  string `json:"paidLabel"`
	DebtLabel  string `json:"debtLabel"`
	IsPaid     bool   `json:"isPaid"`

	TotalReservas float64       `json:"totalReservas"`
	TotalAbonos   float64       `json:"totalAbonos"`
	Lines         []InvoiceLine `json:"lines"`

	IssuedAt string `json:"issuedAt"`
}

// InvoiceView arma el comprobante a partir de los totales de Calc.
func InvoiceView(w Walker, ev Event, fins Financials, now time.Time) Invoice {
	cur := ev.Currency
	isPaid := fins.Debt <= 0

	typeText := "Evento General"
	if ev.EventType != "" {
		typeText = ev.EventType
		if ev.Stage != "" {
			typeText += " • " + ev.Stage
		}
	}

	locationText := ev.EffectiveLocation()
	if locationText == "" {
		locationText = "Por definir"
	}

	inv := Invoice{
		Title:    "La Tribu de Los Libres",
		Subtitle: "Comprobante de Actividad",

		TypeText:     typeText,
		EventName:    ev.Name,
		LocationText: locationText,

		SingleDay: ev.Days <= 1,
		Includes:  ev.Includes,

		ClientName:  w.Nombre,
		ClientID:    w.Cedula,
		ClientPhone: w.Telefono,

		PriceLabel: string(cur) + localeString(ev.Price),
		PaidLabel:  string(cur) + localeString(fins.TotalPaid),
		DebtLabel:  string(cur) + localeString(math.Max(0, fins.Debt)),
		IsPaid:     isPaid,

		IssuedAt: spanishLongDate(now),
	}

	if inv.SingleDay {
		inv.DateLabel = spanishShortDate(ev.DateStart)
		inv.TimeLabel = twelveHour(ev.TimeStart)
	} else {
		inv.SalidaLabel = strings.TrimSpace(spanishShortDate(ev.DateStart) + " " + twelveHour(ev.TimeStart))
		inv.RegresoLabel = strings.TrimSpace(spanishShortDate(ev.DateEnd) + " " + twelveHour(ev.TimeEnd))
	}

	// Las cuentas de cobro solo se muestran mientras quede saldo.
	if !isPaid {
		inv.Accounts = ev.PaymentMethods
	}

	lines := make([]InvoiceLine, 0, len(w.Pagos))
	for i, p := range w.Pagos {
		rate := p.ExchangeRate
		if rate <= 0 {
			rate = 1
		}

		normalized := p.Monto
		if p.PayCurrency != cur {
			if cur == CurrencyColones {
				normalized = p.Monto * rate
			} else {
				normalized = p.Monto / rate
			}
		}
		if p.Tipo == KindReserva {
			inv.TotalReservas += normalized
		} else {
			inv.TotalAbonos += normalized
		}

		var colones, dolares string
		if p.PayCurrency == CurrencyColones {
			colones = "¢" + localeString(p.Monto)
			dolares = "$" + strconv.FormatFloat(p.Monto/rate, 'f', 2, 64)
		} else {
			dolares = "$" + localeString(p.Monto)
			colones = "¢" + localeString(math.Floor(p.Monto*rate))
		}

		fecha := p.Fecha
		if fecha == "" {
			fecha = "N/A"
		}

		lines = append(lines, InvoiceLine{
			Index:     i + 1,
			Fecha:     fecha,
			Tipo:      p.Tipo,
			RateLabel: "TC: " + plainNumber(rate),
			Colones:   colones,
			Dolares:   dolares,
		})
	}
	inv.Lines = lines

	return inv
}

// plainNumber imprime el número tal cual, sin ceros de relleno.
func plainNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var spanishMonths = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var spanishMonthsShort = []string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

func spanishLongDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// spanishShortDate convierte "2026-03-05" en "5 mar"; sin fecha => "--/--".
func spanishShortDate(isoDate string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(isoDate))
	if err != nil {
		return "--/--"
	}
	return fmt.Sprintf("%d %s", t.Day(), spanishMonthsShort[t.Month()-1])
}

// twelveHour convierte "14:30" en "2:30 PM"; entradas raras quedan igual.
func twelveHour(time24 string) string {
	parts := strings.SplitN(strings.TrimSpace(time24), ":", 2)
	if len(parts) != 2 {
		return strings.TrimSpace(time24)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return time24
	}
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, parts[1], ampm)
}
