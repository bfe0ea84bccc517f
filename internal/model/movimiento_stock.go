package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tipo values for MovimientoStock.
const (
	StockEntrada = "ENTRADA"
	StockSalida  = "SALIDA"
)

// MovimientoStock records one change of stock for a product. Cantidad is a
// positive magnitude; Tipo carries the direction. Stock on hand is the fold of
// all movements, so rows are never modified.
type MovimientoStock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductoID uuid.UUID `gorm:"type:uuid;not null;index:idx_movstock_venta_producto"`
	Tipo       string    `gorm:"type:varchar(10);not null"`
	Cantidad   int       `gorm:"not null"`
	Nota       string
	// VentaID links void credits and sale debits to their sale; together with
	// ProductoID it is the idempotency key of a void credit.
	VentaID   *uuid.UUID `gorm:"type:uuid;index:idx_movstock_venta_producto"`
	CreatedAt time.Time
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

func (m *MovimientoStock) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Firmada returns Cantidad with the direction applied.
func (m MovimientoStock) Firmada() int {
	if m.Tipo == StockSalida {
		return -m.Cantidad
	}
	return m.Cantidad
}
