package dto

import (
	"cajapos/internal/arqueo"
	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ArqueoRequest backs both preview and finalize. Contado is keyed by payment
// method name; missing methods count as zero.
type ArqueoRequest struct {
	TurnoID       string                 `json:"turno_id"      validate:"required,uuid"`
	Fecha         string                 `json:"fecha"         validate:"required,datetime=2006-01-02"`
	Banco         string                 `json:"banco"`
	Contado       map[string]money.Money `json:"contado"       validate:"required"`
	Observaciones *string                `json:"observaciones"`
	// Confirmado acknowledges the warnings of a previous attempt.
	Confirmado bool `json:"confirmado"`
	// CajeroSolicitante restricts the request to shifts of that cashier. The
	// handler sets it for the cajero role.
	CajeroSolicitante *uuid.UUID `json:"-"`
}

type ArqueoRangoFilter struct {
	DateFrom string `form:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   validate:"required,datetime=2006-01-02"`
	CajeroID string `form:"cajero_id" validate:"omitempty,uuid"`
}

type ArqueoExisteFilter struct {
	Fecha    string `form:"fecha"     validate:"required,datetime=2006-01-02"`
	CajeroID string `form:"cajero_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ArqueoPreview struct {
	Fecha               string             `json:"fecha"`
	CajeroID            string             `json:"cajero_id"`
	TurnoID             string             `json:"turno_id"`
	Base                money.Money        `json:"base"`
	Ventas              model.Vector       `json:"ventas"`
	NetoMovimientos     money.Money        `json:"neto_movimientos"`
	Esperado            model.Vector       `json:"esperado"`
	Contado             model.Vector       `json:"contado"`
	Diferencias         arqueo.Diferencias `json:"diferencias"`
	Errores             []string           `json:"errores"`
	Advertencias        []string           `json:"advertencias"`
	MetodosDesconocidos []string           `json:"metodos_desconocidos,omitempty"`
	Estado              string             `json:"estado"`
}

type ArqueoResponse struct {
	ID              string       `json:"id"`
	Fecha           string       `json:"fecha"`
	CajeroID        string       `json:"cajero_id"`
	TurnoID         string       `json:"turno_id"`
	Banco           string       `json:"banco,omitempty"`
	Esperado        model.Vector `json:"esperado"`
	Contado         model.Vector `json:"contado"`
	Diferencias     model.Vector `json:"diferencias"`
	TotalEsperado   money.Money  `json:"total_esperado"`
	TotalContado    money.Money  `json:"total_contado"`
	TotalDiferencia money.Money  `json:"total_diferencia"`
	// Resumen is the human-readable total difference, e.g. "-$15.000".
	Resumen       string   `json:"resumen"`
	Observaciones *string  `json:"observaciones"`
	Estado        string   `json:"estado"`
	Advertencias  []string `json:"advertencias,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type ArqueoExisteResponse struct {
	Fecha    string  `json:"fecha"`
	CajeroID *string `json:"cajero_id"`
	Existe   bool    `json:"existe"`
}
