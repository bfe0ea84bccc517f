package model

import (
	"time"

	"cajapos/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ArqueoCompletado = "COMPLETADO"

// Arqueo is the immutable audit record of a till reconciliation. One row is
// inserted per (fecha, turno); corrections delete and recreate, never patch.
// Invariant: TotalDiferencia == TotalContado - TotalEsperado, both totals
// computed over the differenced methods only (Bono excluded).
type Arqueo struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fecha    string    `gorm:"type:varchar(10);index:idx_arqueo_fecha_cajero;not null"`
	CajeroID uuid.UUID `gorm:"type:uuid;index:idx_arqueo_fecha_cajero;not null"`
	TurnoID  uuid.UUID `gorm:"type:uuid;index;not null"`
	// Banco is the bank/branch filter the count was made for (optional).
	Banco           string
	Esperado        Vector      `gorm:"type:jsonb;serializer:json;not null"`
	Contado         Vector      `gorm:"type:jsonb;serializer:json;not null"`
	TotalEsperado   money.Money `gorm:"type:decimal(14,2);not null"`
	TotalContado    money.Money `gorm:"type:decimal(14,2);not null"`
	TotalDiferencia money.Money `gorm:"type:decimal(14,2);not null"`
	Observaciones   *string
	Estado          string `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time
}

func (a *Arqueo) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Diferencias recomputes counted - expected for every differenced method.
func (a Arqueo) Diferencias() Vector {
	out := make(Vector, len(MetodosPago)-1)
	for _, m := range MetodosPago {
		if m.Diferenciable() {
			out[m] = a.Contado.Get(m).Sub(a.Esperado.Get(m))
		}
	}
	return out
}
