package service

import (
	"errors"
	"fmt"
	"strings"

	"cajapos/internal/arqueo"

	"github.com/google/uuid"
)

// ValidationError carries blocking validation messages.
type ValidationError = arqueo.ValidationError

var (
	ErrNoEncontrado    = errors.New("recurso no encontrado")
	ErrVentaYaAnulada  = errors.New("la venta ya está anulada")
	ErrArqueoDuplicado = errors.New("ya existe un arqueo para esta fecha y turno")
	ErrTokenRequerido  = errors.New("se requiere token de confirmación")
	ErrTurnoAjeno      = errors.New("el turno pertenece a otro cajero")
)

// ConfirmacionRequeridaError is returned by Finalizar when the count passed
// validation but raised warnings that the cashier has not acknowledged.
type ConfirmacionRequeridaError struct {
	Advertencias []string
}

func (e *ConfirmacionRequeridaError) Error() string {
	return "se requiere confirmación: " + strings.Join(e.Advertencias, "; ")
}

// ReconciliationLockedError means the date already has a finalized arqueo.
type ReconciliationLockedError struct {
	Fecha    string
	CajeroID *uuid.UUID
}

func (e *ReconciliationLockedError) Error() string {
	return fmt.Sprintf("la caja del %s ya fue cerrada; reabra el arqueo para modificarla", e.Fecha)
}

// PersistenceUnavailableError means the audit store could not answer. Callers
// must treat it as unknown, never as "no data".
type PersistenceUnavailableError struct {
	Op  string
	Err error
}

func (e *PersistenceUnavailableError) Error() string {
	return fmt.Sprintf("persistencia no disponible (%s): %v", e.Op, e.Err)
}

func (e *PersistenceUnavailableError) Unwrap() error { return e.Err }

// InventoryCreditError is a failed ENTRADA during a void. It is logged and
// queued for retry; it never aborts the void.
type InventoryCreditError struct {
	VentaID    uuid.UUID
	ProductoID uuid.UUID
	Cantidad   int
	Err        error
}

func (e *InventoryCreditError) Error() string {
	return fmt.Sprintf("crédito de inventario venta=%s producto=%s: %v", e.VentaID, e.ProductoID, e.Err)
}

func (e *InventoryCreditError) Unwrap() error { return e.Err }
