package handler

import (
	"net/http"
	"time"

	"cajapos/internal/dto"
	"cajapos/internal/middleware"
	"cajapos/internal/model"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
)

type ArqueosHandler struct{ svc service.ArqueoService }

func NewArqueosHandler(svc service.ArqueoService) *ArqueosHandler {
	return &ArqueosHandler{svc: svc}
}

// Previsualizar godoc
// @Summary Calcula esperado, diferencias y validaciones sin guardar
// @Tags arqueos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ArqueoRequest true "Conteo"
// @Success 200 {object} dto.ArqueoPreview
// @Failure 403 {object} apierror.APIError "Turno de otro cajero"
// @Failure 422 {object} apierror.APIError
// @Router /v1/arqueos/previsualizar [post]
func (h *ArqueosHandler) Previsualizar(c *gin.Context) {
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) || !limitarACajero(c, &req) {
		return
	}
	resp, err := h.svc.Previsualizar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Finalizar godoc
// @Summary Finaliza el arqueo y lo registra de forma inmutable
// @Tags arqueos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ArqueoRequest true "Conteo"
// @Success 201 {object} dto.ArqueoResponse
// @Failure 403 {object} apierror.APIError "Turno de otro cajero"
// @Failure 409 {object} apierror.APIError "Advertencias sin confirmar o arqueo duplicado"
// @Failure 422 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/arqueos [post]
func (h *ArqueosHandler) Finalizar(c *gin.Context) {
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) || !limitarACajero(c, &req) {
		return
	}
	a, res, err := h.svc.Finalizar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := arqueoToResponse(a)
	resp.Advertencias = res.Advertencias
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista arqueos en un rango de fechas
// @Tags arqueos
// @Produce json
// @Security BearerAuth
// @Param date_from query string true "YYYY-MM-DD"
// @Param date_to query string true "YYYY-MM-DD"
// @Param cajero_id query string false "Filtra por cajero"
// @Success 200 {array} dto.ArqueoResponse
// @Router /v1/arqueos [get]
func (h *ArqueosHandler) Listar(c *gin.Context) {
	var f dto.ArqueoRangoFilter
	if !bindQueryAndValidate(c, &f) {
		return
	}
	arqueos, err := h.svc.ConsultarRango(c.Request.Context(), f.DateFrom, f.DateTo, optionalUUID(f.CajeroID))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.ArqueoResponse, 0, len(arqueos))
	for i := range arqueos {
		out = append(out, arqueoToResponse(&arqueos[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Existe godoc
// @Summary Indica si la fecha ya tiene un arqueo finalizado
// @Tags arqueos
// @Produce json
// @Security BearerAuth
// @Param fecha query string true "YYYY-MM-DD"
// @Param cajero_id query string false "Cajero"
// @Success 200 {object} dto.ArqueoExisteResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/arqueos/existe [get]
func (h *ArqueosHandler) Existe(c *gin.Context) {
	var f dto.ArqueoExisteFilter
	if !bindQueryAndValidate(c, &f) {
		return
	}
	cajeroID := optionalUUID(f.CajeroID)
	existe, err := h.svc.ExisteParaFecha(c.Request.Context(), f.Fecha, cajeroID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.ArqueoExisteResponse{Fecha: f.Fecha, Existe: existe}
	if cajeroID != nil {
		s := cajeroID.String()
		resp.CajeroID = &s
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary Elimina un arqueo y reabre la fecha
// @Tags arqueos
// @Security BearerAuth
// @Param id path string true "ID del arqueo"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/arqueos/{id} [delete]
func (h *ArqueosHandler) Eliminar(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// limitarACajero ties a cashier's request to their own shifts. Supervisors
// and administrators may reconcile any shift.
func limitarACajero(c *gin.Context, req *dto.ArqueoRequest) bool {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.Rol != middleware.RolCajero {
		return true
	}
	id, ok := cajeroDeToken(c)
	if !ok {
		return false
	}
	req.CajeroSolicitante = &id
	return true
}

func arqueoToResponse(a *model.Arqueo) dto.ArqueoResponse {
	return dto.ArqueoResponse{
		ID:              a.ID.String(),
		Fecha:           a.Fecha,
		CajeroID:        a.CajeroID.String(),
		TurnoID:         a.TurnoID.String(),
		Banco:           a.Banco,
		Esperado:        a.Esperado.Completar(),
		Contado:         a.Contado.Completar(),
		Diferencias:     a.Diferencias(),
		TotalEsperado:   a.TotalEsperado,
		TotalContado:    a.TotalContado,
		TotalDiferencia: a.TotalDiferencia,
		Resumen:         a.TotalDiferencia.Format(),
		Observaciones:   a.Observaciones,
		Estado:          a.Estado,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
}
