package handler

import (
	"net/http"
	"time"

	"cajapos/internal/dto"
	"cajapos/internal/model"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct {
	turnos      service.CajaService
	movimientos service.MovimientoService
}

func NewCajaHandler(turnos service.CajaService, movimientos service.MovimientoService) *CajaHandler {
	return &CajaHandler{turnos: turnos, movimientos: movimientos}
}

// AbrirTurno godoc
// @Summary Abre un turno para el cajero autenticado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirTurnoRequest true "Base de apertura"
// @Success 201 {object} dto.TurnoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/turnos [post]
func (h *CajaHandler) AbrirTurno(c *gin.Context) {
	var req dto.AbrirTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cajeroID, ok := cajeroDeToken(c)
	if !ok {
		return
	}
	resp, err := h.turnos.AbrirTurno(c.Request.Context(), cajeroID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerTurno godoc
// @Summary Obtiene un turno
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del turno"
// @Success 200 {object} dto.TurnoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/turnos/{id} [get]
func (h *CajaHandler) ObtenerTurno(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.turnos.ObtenerTurno(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual de efectivo
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoCajaRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cajeroID, ok := cajeroDeToken(c)
	if !ok {
		return
	}
	mov, err := h.movimientos.Registrar(c.Request.Context(), cajeroID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movimientoToResponse(mov))
}

// EliminarMovimiento godoc
// @Summary Elimina un movimiento manual (idempotente)
// @Tags caja
// @Security BearerAuth
// @Param id path string true "ID del movimiento"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/movimientos/{id} [delete]
func (h *CajaHandler) EliminarMovimiento(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.movimientos.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListarMovimientos godoc
// @Summary Lista los movimientos manuales de una fecha y su neto
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param fecha query string true "YYYY-MM-DD"
// @Param cajero_id query string false "Filtra por cajero"
// @Success 200 {object} dto.MovimientoListResponse
// @Router /v1/caja/movimientos [get]
func (h *CajaHandler) ListarMovimientos(c *gin.Context) {
	var f dto.MovimientoFilter
	if !bindQueryAndValidate(c, &f) {
		return
	}
	cajeroID := optionalUUID(f.CajeroID)
	movs, err := h.movimientos.Listar(c.Request.Context(), f.Fecha, cajeroID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.MovimientoListResponse{Data: make([]dto.MovimientoCajaResponse, 0, len(movs))}
	for i := range movs {
		resp.Data = append(resp.Data, movimientoToResponse(&movs[i]))
		resp.Neto = resp.Neto.Add(movs[i].Firmado())
	}
	c.JSON(http.StatusOK, resp)
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoCajaResponse {
	resp := dto.MovimientoCajaResponse{
		ID:         m.ID.String(),
		Fecha:      m.Fecha,
		CajeroID:   m.CajeroID.String(),
		Tipo:       m.Tipo,
		Monto:      m.Monto,
		Firmado:    m.Firmado(),
		Concepto:   m.Concepto,
		OcurridoEn: m.OcurridoEn.UTC().Format(time.RFC3339),
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.TurnoID != nil {
		t := m.TurnoID.String()
		resp.TurnoID = &t
	}
	return resp
}
