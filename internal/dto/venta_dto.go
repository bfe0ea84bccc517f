package dto

import (
	"time"

	"cajapos/internal/money"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	DateFrom string `form:"date_from"               validate:"omitempty,datetime=2006-01-02"` // empty = today
	DateTo   string `form:"date_to"                 validate:"omitempty,datetime=2006-01-02"`
	CajeroID string `form:"cajero_id"               validate:"omitempty,uuid"`
	Estado   string `form:"estado,default=all"      validate:"omitempty,oneof=completada anulada all"`
	Page     int    `form:"page,default=1"          validate:"min=1"`
	Limit    int    `form:"limit,default=50"        validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	ProductoID     string      `json:"producto_id"     validate:"required,uuid"`
	Cantidad       int         `json:"cantidad"        validate:"required,min=1"`
	PrecioUnitario money.Money `json:"precio_unitario" validate:"min=0"`
}

type RegistrarVentaRequest struct {
	TurnoID    string             `json:"turno_id"    validate:"omitempty,uuid"`
	MetodoPago string             `json:"metodo_pago" validate:"required"`
	Items      []ItemVentaRequest `json:"items"       validate:"required,min=1,dive"`
	// CreatedAt lets importers replay historical sales; defaults to now.
	CreatedAt *time.Time `json:"created_at"`
}

type AnularVentaRequest struct {
	Motivo            string `json:"motivo"             validate:"required,min=5"`
	TokenConfirmacion string `json:"token_confirmacion"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ProductoID     string      `json:"producto_id"`
	Cantidad       int         `json:"cantidad"`
	PrecioUnitario money.Money `json:"precio_unitario"`
	Subtotal       money.Money `json:"subtotal"`
}

type VentaResponse struct {
	ID              string              `json:"id"`
	CajeroID        string              `json:"cajero_id"`
	TurnoID         *string             `json:"turno_id"`
	MetodoPago      string              `json:"metodo_pago"`
	Total           money.Money         `json:"total"`
	Estado          string              `json:"estado"`
	MotivoAnulacion *string             `json:"motivo_anulacion,omitempty"`
	AnuladaEn       *string             `json:"anulada_en,omitempty"`
	Items           []ItemVentaResponse `json:"items"`
	CreatedAt       string              `json:"created_at"`
}

type AnulacionResponse struct {
	VentaID   string `json:"venta_id"`
	Estado    string `json:"estado"`
	Creditos  int    `json:"creditos_emitidos"`
	Omitidos  int    `json:"creditos_omitidos"`
	Pendiente int    `json:"creditos_pendientes"`
}
