package dto

import (
	"time"

	"cajapos/internal/money"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirTurnoRequest struct {
	Base money.Money `json:"base" validate:"min=0"`
	// IniciadoEn defaults to the server clock.
	IniciadoEn *time.Time `json:"iniciado_en"`
}

type MovimientoCajaRequest struct {
	TurnoID string `json:"turno_id" validate:"omitempty,uuid"`
	// Fecha defaults to the local date of OcurridoEn.
	Fecha      string      `json:"fecha"       validate:"omitempty,datetime=2006-01-02"`
	Tipo       string      `json:"tipo"        validate:"required,oneof=ingreso egreso"`
	Monto      money.Money `json:"monto"`
	Concepto   string      `json:"concepto"`
	OcurridoEn *time.Time  `json:"ocurrido_en"`
}

// MovimientoFilter is bound from the query string of GET /v1/caja/movimientos.
type MovimientoFilter struct {
	Fecha    string `form:"fecha"     validate:"required,datetime=2006-01-02"`
	CajeroID string `form:"cajero_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TurnoResponse struct {
	ID         string      `json:"id"`
	CajeroID   string      `json:"cajero_id"`
	IniciadoEn string      `json:"iniciado_en"`
	Base       money.Money `json:"base"`
}

type MovimientoCajaResponse struct {
	ID         string      `json:"id"`
	TurnoID    *string     `json:"turno_id"`
	Fecha      string      `json:"fecha"`
	CajeroID   string      `json:"cajero_id"`
	Tipo       string      `json:"tipo"`
	Monto      money.Money `json:"monto"`
	Firmado    money.Money `json:"monto_firmado"`
	Concepto   string      `json:"concepto"`
	OcurridoEn string      `json:"ocurrido_en"`
	CreatedAt  string      `json:"created_at"`
}

type MovimientoListResponse struct {
	Data []MovimientoCajaResponse `json:"data"`
	Neto money.Money              `json:"neto"`
}
