package ledger

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWalkerTotal_MixedCurrencies(t *testing.T) {
	// Evento en colones, precio 100000. Reserva de ¢50000 y abono de
	// $50 con TC 520 => 50000 + 26000 = 76000, deuda 24000.
	w := Walker{
		Pagos: []Payment{
			{Tipo: KindReserva, Monto: 50000, PayCurrency: CurrencyColones, ExchangeRate: 520},
			{Tipo: KindAbono, Monto: 50, PayCurrency: CurrencyDollars, ExchangeRate: 520},
		},
	}

	total := WalkerTotal(w, CurrencyColones, 530)
	if !almostEqual(total, 76000) {
		t.Fatalf("total = %v, want 76000", total)
	}

	ev := Event{Currency: CurrencyColones, Price: 100000, Walkers: []Walker{w}}
	fins := WalkerFinancials(w, ev, 530)
	if !almostEqual(fins.Debt, 24000) {
		t.Fatalf("debt = %v, want 24000", fins.Debt)
	}
}

func TestWalkerTotal_DollarEventDividesColones(t *testing.T) {
	w := Walker{
		Pagos: []Payment{
			{Monto: 26000, PayCurrency: CurrencyColones, ExchangeRate: 520},
		},
	}
	total := WalkerTotal(w, CurrencyDollars, 530)
	if !almostEqual(total, 50) {
		t.Fatalf("total = %v, want 50", total)
	}
}

func TestWalkerTotal_FallbackRatePerPayment(t *testing.T) {
	// El primer pago no trae tasa y usa la global; el segundo usa la
	// suya propia.
	w := Walker{
		Pagos: []Payment{
			{Monto: 10, PayCurrency: CurrencyDollars, ExchangeRate: 0},
			{Monto: 10, PayCurrency: CurrencyDollars, ExchangeRate: 500},
		},
	}
	total := WalkerTotal(w, CurrencyColones, 530)
	if !almostEqual(total, 10*530+10*500) {
		t.Fatalf("total = %v, want %v", total, float64(10*530+10*500))
	}
}

func TestWalkerTotal_ZeroRateYieldsZeroNotPanic(t *testing.T) {
	w := Walker{
		Pagos: []Payment{
			{Monto: 26000, PayCurrency: CurrencyColones, ExchangeRate: 0},
		},
	}
	// Tasa global también inválida: el equivalente no existe, el pago
	// aporta 0 (no divide entre cero).
	total := WalkerTotal(w, CurrencyDollars, 0)
	if total != 0 {
		t.Fatalf("total = %v, want 0", total)
	}
}

func TestWalkerFinancials_DebtNeverNegative(t *testing.T) {
	w := Walker{
		Pagos: []Payment{{Monto: 150000, PayCurrency: CurrencyColones, ExchangeRate: 520}},
	}
	ev := Event{Currency: CurrencyColones, Price: 100000}

	fins := WalkerFinancials(w, ev, 530)
	if fins.Debt != 0 {
		t.Fatalf("debt = %v, want 0 (sobrepago)", fins.Debt)
	}
}

func TestEventTotal_SumsAllWalkers(t *testing.T) {
	ev := Event{
		Currency: CurrencyColones,
		Walkers: []Walker{
			{Pagos: []Payment{{Monto: 10000, PayCurrency: CurrencyColones, ExchangeRate: 520}}},
			{Pagos: []Payment{{Monto: 20, PayCurrency: CurrencyDollars, ExchangeRate: 500}}},
			{}, // sin pagos
		},
	}
	total := EventTotal(ev, 530)
	if !almostEqual(total, 10000+20*500) {
		t.Fatalf("total = %v, want %v", total, float64(10000+20*500))
	}
}

func TestCurrencyOther(t *testing.T) {
	if CurrencyColones.Other() != CurrencyDollars {
		t.Fatal("espejo de colones debe ser dólares")
	}
	if CurrencyDollars.Other() != CurrencyColones {
		t.Fatal("espejo de dólares debe ser colones")
	}
}

func TestConversionRoundTrip(t *testing.T) {
	// Ir a la moneda espejo y volver con la misma tasa devuelve el
	// monto original (dentro de la tolerancia de float).
	for _, rate := range []float64{1, 505.37, 520, 638.25} {
		for _, amount := range []float64{0, 1, 99.99, 123456.78} {
			for _, cur := range []Currency{CurrencyColones, CurrencyDollars} {
				mirror := equivalent(amount, cur, rate)
				back := equivalent(mirror, cur.Other(), rate)
				if math.Abs(back-amount) > 1e-6 {
					t.Fatalf("round trip %v %s TC %v => %v", amount, cur, rate, back)
				}
			}
		}
	}
}
