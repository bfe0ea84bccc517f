// Package borrador keeps per-date arqueo drafts: what the cashier has counted
// so far and whether the date was finalized. It is the fallback the void
// guard consults when the audit store cannot be reached.
package borrador

import (
	"context"
	"fmt"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/model"

	"github.com/google/uuid"
)

// Clave identifies a draft. It renders as confirmation_<modulo>_<YYYY-MM-DD>.
type Clave struct {
	Modulo string
	Fecha  string
}

func (c Clave) String() string {
	return fmt.Sprintf("confirmation_%s_%s", c.Modulo, c.Fecha)
}

// Borrador is a Reconciliation-like payload kept before and after finalize.
type Borrador struct {
	Fecha         string             `json:"fecha"`
	CajeroID      uuid.UUID          `json:"cajero_id"`
	TurnoID       uuid.UUID          `json:"turno_id"`
	Contado       model.Vector       `json:"contado"`
	Observaciones string             `json:"observaciones,omitempty"`
	Estado        arqueo.EstadoFecha `json:"estado"`
	ArqueoID      *uuid.UUID         `json:"arqueo_id,omitempty"`
	ActualizadoEn time.Time          `json:"actualizado_en"`
}

func (b Borrador) Finalizado() bool { return b.Estado == arqueo.Finalizado }

// Store is a keyed draft store. Obtener returns ok=false when no draft exists.
type Store interface {
	Obtener(ctx context.Context, clave Clave) (*Borrador, bool, error)
	Guardar(ctx context.Context, clave Clave, b Borrador) error
	Eliminar(ctx context.Context, clave Clave) error
}
