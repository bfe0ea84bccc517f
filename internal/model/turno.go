package model

import (
	"time"

	"cajapos/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Turno is a cashier's login-to-logout session. It is created at login and
// never mutated afterwards; IniciadoEn is the lower bound for the sales that
// count in the shift's arqueo.
type Turno struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CajeroID   uuid.UUID `gorm:"type:uuid;index;not null"`
	IniciadoEn time.Time `gorm:"not null"`
	// Base is the opening float present in the drawer at shift start.
	Base      money.Money `gorm:"type:decimal(14,2);not null"`
	CreatedAt time.Time
}

func (t *Turno) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Tipo values for MovimientoCaja.
const (
	MovimientoIngreso = "ingreso"
	MovimientoEgreso  = "egreso"
)

// MovimientoCaja is a manual ingress/egress of drawer cash not arising from a
// sale. Monto is always a non-negative magnitude; the sign comes from Tipo.
// Movements are pre-finalize scratch data: they are hard-deleted to correct
// them, never updated.
type MovimientoCaja struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TurnoID    *uuid.UUID  `gorm:"type:uuid;index"`
	Fecha      string      `gorm:"type:varchar(10);index:idx_movcaja_fecha_cajero;not null"`
	CajeroID   uuid.UUID   `gorm:"type:uuid;index:idx_movcaja_fecha_cajero;not null"`
	Tipo       string      `gorm:"type:varchar(10);not null"`
	Monto      money.Money `gorm:"type:decimal(14,2);not null"`
	Concepto   string      `gorm:"not null"`
	OcurridoEn time.Time   `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName overrides the default pluralization (movimiento_cajas).
func (MovimientoCaja) TableName() string { return "movimientos_caja" }

func (m *MovimientoCaja) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Firmado returns the signed amount: ingreso +, egreso −.
func (m MovimientoCaja) Firmado() money.Money {
	if m.Tipo == MovimientoEgreso {
		return m.Monto.Abs().Neg()
	}
	return m.Monto.Abs()
}
