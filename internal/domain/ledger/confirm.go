package ledger

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrFlowNotFound = errors.New("confirmation flow not found")
	ErrBadState     = errors.New("invalid state")
)

// ConfirmState modela el flujo explícito de confirmación para acciones
// destructivas. No hay timeout ni auto-cancelación: el flujo avanza
// solo con clics afirmativos explícitos.
type ConfirmState string

const (
	ConfirmStep1    ConfirmState = "confirm_1"
	ConfirmStep2    ConfirmState = "confirm_2"
	ConfirmStep3    ConfirmState = "confirm_3"
	ConfirmExecuted ConfirmState = "executed"
)

// ConfirmTarget identifica qué se va a borrar.
type ConfirmTarget string

const (
	TargetEvent  ConfirmTarget = "event"
	TargetWalker ConfirmTarget = "walker"
)

// confirmFlow es una instancia viva de un flujo de borrado. Borrar un
// evento o caminante exige tres pasos; el flujo queda Executed al
// completarse y no puede reutilizarse. (El borrado de pagos, a dos
// pasos, vive en el Manager junto al candado de edición.)
type confirmFlow struct {
	Target    ConfirmTarget
	TargetID  int64
	State     ConfirmState
	CreatedAt time.Time
}

// advance mueve el flujo un paso. Devuelve true cuando el último paso
// fue confirmado y la acción debe ejecutarse.
func (f *confirmFlow) advance() (done bool, err error) {
	switch f.State {
	case ConfirmStep1:
		f.State = ConfirmStep2
	case ConfirmStep2:
		f.State = ConfirmStep3
	case ConfirmStep3:
		f.State = ConfirmExecuted
		return true, nil
	default:
		return false, ErrBadState
	}
	return false, nil
}

// debouncer coalesce ráfagas de ediciones en una sola acción tras un
// periodo de silencio. Reemplaza el clearTimeout/setTimeout ad hoc por
// un timer cancelable.
type debouncer struct {
	mu sync.Mutex
	t  *time.Timer
}

// trigger agenda fn tras delay, cancelando cualquier disparo pendiente.
func (d *debouncer) trigger(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	if delay <= 0 {
		d.t = nil
		fn()
		return
	}
	d.t = time.AfterFunc(delay, fn)
}

// stop cancela el disparo pendiente, si lo hay.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
		d.t = nil
	}
}
