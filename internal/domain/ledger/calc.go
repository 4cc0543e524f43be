package ledger

import "math"

// Cálculos financieros puros. Ninguna función de este archivo falla ni
// toca estado: datos faltantes o tipos de cambio inválidos producen 0.

// Financials es el resumen financiero de un caminante para la ficha de
// detalle. Los campos Equiv* están en la moneda espejo del evento.
type Financials struct {
	TotalPaid float64
	Debt      float64
	EquivPaid float64
	EquivDebt float64
}

// WalkerTotal suma los pagos de un caminante normalizados a la moneda
// del evento. Cada pago usa su propio tipo de cambio; si no tiene uno
// válido se usa fallbackRate.
func WalkerTotal(w Walker, eventCurrency Currency, fallbackRate float64) float64 {
	var sum float64
	for _, p := range w.Pagos {
		rate := p.ExchangeRate
		if rate <= 0 {
			rate = fallbackRate
		}

		if p.PayCurrency == eventCurrency {
			sum += p.Monto
			continue
		}

		// Evento en colones y pago en dólares => multiplicar.
		// Evento en dólares y pago en colones => dividir.
		sum += convert(p.Monto, eventCurrency, rate)
	}
	return sum
}

// EventTotal es lo recaudado en el evento: la suma de WalkerTotal sobre
// todos los caminantes.
func EventTotal(ev Event, fallbackRate float64) float64 {
	var total float64
	for _, w := range ev.Walkers {
		total += WalkerTotal(w, ev.Currency, fallbackRate)
	}
	return total
}

// WalkerFinancials calcula abonado, deuda y sus equivalentes en la
// moneda espejo. La deuda nunca es negativa.
func WalkerFinancials(w Walker, ev Event, fallbackRate float64) Financials {
	totalPaid := WalkerTotal(w, ev.Currency, fallbackRate)
	debt := math.Max(0, ev.Price-totalPaid)

	return Financials{
		TotalPaid: totalPaid,
		Debt:      debt,
		EquivPaid: equivalent(totalPaid, ev.Currency, fallbackRate),
		EquivDebt: equivalent(debt, ev.Currency, fallbackRate),
	}
}

// convert lleva un monto expresado en la moneda contraria hacia la
// moneda destino. Un tipo de cambio no positivo significa "equivalente
// no disponible" y produce 0 en lugar de dividir por cero.
func convert(amount float64, to Currency, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	if to == CurrencyColones {
		return amount * rate
	}
	return amount / rate
}

// equivalent proyecta un monto de la moneda del evento hacia la espejo.
func equivalent(amount float64, eventCurrency Currency, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	if eventCurrency == CurrencyDollars {
		return amount * rate
	}
	return amount / rate
}
