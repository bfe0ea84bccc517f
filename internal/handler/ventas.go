package handler

import (
	"net/http"

	"cajapos/internal/dto"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct {
	ventas      service.VentaService
	anulaciones service.AnulacionService
}

func NewVentasHandler(ventas service.VentaService, anulaciones service.AnulacionService) *VentasHandler {
	return &VentasHandler{ventas: ventas, anulaciones: anulaciones}
}

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Guarda la venta con sus ítems y descuenta stock. Rechaza fechas ya arqueadas.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cajeroID, ok := cajeroDeToken(c)
	if !ok {
		return
	}
	resp, err := h.ventas.RegistrarVenta(c.Request.Context(), cajeroID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerVenta godoc
// @Summary      Obtener una venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.ventas.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AnularVenta godoc
// @Summary      Anular venta
// @Description  Devuelve el stock de cada ítem y marca la venta como anulada. Requiere token de confirmación y que la fecha no esté arqueada.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                 true "UUID de la venta"
// @Param        body body     dto.AnularVentaRequest true "Motivo y token"
// @Success      200  {object} dto.AnulacionResponse
// @Failure      409  {object} apierror.APIError "Fecha arqueada o venta ya anulada"
// @Failure      422  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/ventas/{id}/anular [post]
func (h *VentasHandler) AnularVenta(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AnularVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.anulaciones.AnularVenta(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        date_from query string false "YYYY-MM-DD (default hoy)"
// @Param        date_to   query string false "YYYY-MM-DD"
// @Param        cajero_id query string false "UUID del cajero"
// @Param        estado    query string false "completada | anulada | all"
// @Param        page      query int    false "Página"
// @Param        limit     query int    false "Tamaño de página"
// @Success      200 {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var f dto.VentaFilter
	if !bindQueryAndValidate(c, &f) {
		return
	}
	resp, err := h.ventas.ListVentas(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
