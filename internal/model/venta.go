package model

import (
	"time"

	"cajapos/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Estado values for Venta. The only transition is completada → anulada.
const (
	VentaCompletada = "completada"
	VentaAnulada    = "anulada"
)

// Venta is a sale as produced by the sales subsystem. Everything except the
// estado transition is immutable once created.
type Venta struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CajeroID uuid.UUID  `gorm:"type:uuid;index;not null"`
	TurnoID  *uuid.UUID `gorm:"type:uuid;index"`
	// MetodoPago keeps the raw string as received; legacy values are
	// normalized when aggregating.
	MetodoPago      string      `gorm:"type:varchar(40);not null"`
	Total           money.Money `gorm:"type:decimal(14,2);not null"`
	Estado          string      `gorm:"type:varchar(20);not null;default:'completada'"`
	MotivoAnulacion *string
	AnuladaEn       *time.Time
	CreatedAt       time.Time `gorm:"index"`

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

func (v *Venta) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v Venta) Anulada() bool { return v.Estado == VentaAnulada }

type VentaItem struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID   `gorm:"type:uuid;index;not null"`
	ProductoID     uuid.UUID   `gorm:"type:uuid;not null"`
	Cantidad       int         `gorm:"not null"`
	PrecioUnitario money.Money `gorm:"type:decimal(14,2);not null"`
}

// TableName keeps the ventas_ prefix shared by the sale tables.
func (VentaItem) TableName() string { return "ventas_items" }

func (i *VentaItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
