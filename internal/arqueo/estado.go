package arqueo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// EstadoFecha is the lifecycle of one date scope (fecha, cajero, turno).
// Transitions only happen on completed operations.
type EstadoFecha string

const (
	SinCargar  EstadoFecha = "SIN_CARGAR"
	Cargando   EstadoFecha = "CARGANDO"
	Listo      EstadoFecha = "LISTO"
	Finalizado EstadoFecha = "FINALIZADO"
)

type Evento string

const (
	IniciarCarga  Evento = "iniciar_carga"
	CargaCompleta Evento = "carga_completa"
	CargaFallida  Evento = "carga_fallida"
	Finalizar     Evento = "finalizar"
	Reabrir       Evento = "reabrir"
)

var ErrTransicionInvalida = errors.New("transición de estado inválida")

var transiciones = map[EstadoFecha]map[Evento]EstadoFecha{
	SinCargar:  {IniciarCarga: Cargando},
	Cargando:   {CargaCompleta: Listo, CargaFallida: SinCargar},
	Listo:      {IniciarCarga: Cargando, Finalizar: Finalizado},
	Finalizado: {Reabrir: SinCargar},
}

// Siguiente returns the state reached from e by ev.
func (e EstadoFecha) Siguiente(ev Evento) (EstadoFecha, error) {
	if e == "" {
		e = SinCargar
	}
	if next, ok := transiciones[e][ev]; ok {
		return next, nil
	}
	return e, fmt.Errorf("%w: %s --%s-->", ErrTransicionInvalida, e, ev)
}

// ClaveFecha identifies a date scope.
type ClaveFecha struct {
	Fecha    string
	CajeroID uuid.UUID
	TurnoID  uuid.UUID
}

// Tablero tracks the state of every date scope of this process.
type Tablero struct {
	mu      sync.Mutex
	estados map[ClaveFecha]EstadoFecha
}

func NewTablero() *Tablero {
	return &Tablero{estados: make(map[ClaveFecha]EstadoFecha)}
}

func (t *Tablero) Estado(k ClaveFecha) EstadoFecha {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.estados[k]; ok {
		return e
	}
	return SinCargar
}

// Aplicar performs the transition atomically and returns the new state.
func (t *Tablero) Aplicar(k ClaveFecha, ev Evento) (EstadoFecha, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	actual, ok := t.estados[k]
	if !ok {
		actual = SinCargar
	}
	next, err := actual.Siguiente(ev)
	if err != nil {
		return actual, err
	}
	if next == SinCargar {
		delete(t.estados, k)
	} else {
		t.estados[k] = next
	}
	return next, nil
}

// Fijar forces a state, used when the persisted record says more than memory
// does (e.g. an arqueo finalized by another process).
func (t *Tablero) Fijar(k ClaveFecha, e EstadoFecha) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e == SinCargar {
		delete(t.estados, k)
		return
	}
	t.estados[k] = e
}
