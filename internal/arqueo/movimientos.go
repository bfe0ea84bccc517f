package arqueo

import (
	"strings"

	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
)

// NetoMovimientos sums the signed magnitudes of the movements made on fecha,
// optionally restricted to one cashier. Query-only.
func NetoMovimientos(movs []model.MovimientoCaja, fecha string, cajeroID *uuid.UUID) money.Money {
	neto := money.Zero
	for _, m := range movs {
		if m.Fecha != fecha {
			continue
		}
		if cajeroID != nil && m.CajeroID != *cajeroID {
			continue
		}
		neto = neto.Add(m.Firmado())
	}
	return neto
}

// ValidarMovimiento checks a movement before it is stored.
func ValidarMovimiento(m model.MovimientoCaja) error {
	var errs []string
	if !m.Monto.IsPositive() {
		errs = append(errs, "El monto debe ser mayor que cero")
	}
	if strings.TrimSpace(m.Concepto) == "" {
		errs = append(errs, "El concepto es obligatorio")
	}
	if m.Tipo != model.MovimientoIngreso && m.Tipo != model.MovimientoEgreso {
		errs = append(errs, "Tipo de movimiento inválido: "+m.Tipo)
	}
	if !ValidarFecha(m.Fecha) {
		errs = append(errs, "Fecha inválida: "+m.Fecha)
	}
	if m.CajeroID == uuid.Nil {
		errs = append(errs, "El cajero es obligatorio")
	}
	if len(errs) > 0 {
		return &ValidationError{Errores: errs}
	}
	return nil
}
