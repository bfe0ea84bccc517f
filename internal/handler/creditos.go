package handler

import (
	"net/http"
	"strconv"

	"cajapos/internal/apierror"
	"cajapos/internal/dto"
	"cajapos/internal/middleware"
	"cajapos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CreditosPendientes godoc
// @Summary      Créditos de inventario pendientes
// @Description  Créditos de anulación que agotaron sus reintentos y esperan revisión manual.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Máximo de entradas (default 100)"
// @Success      200 {array}  dto.CreditoPendienteResponse
// @Failure      503 {object} apierror.APIError
// @Router       /v1/inventario/creditos-pendientes [get]
func CreditosPendientes(rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

		entries, err := worker.ListDLQ(c.Request.Context(), rdb, worker.QueueCreditoInventario, limit)
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("dlq read failed")
			c.JSON(http.StatusServiceUnavailable, apierror.WithCode(apierror.CodePersistenciaCaida, "Cola de reintentos no disponible"))
			return
		}

		out := make([]dto.CreditoPendienteResponse, 0, len(entries))
		for _, e := range entries {
			job, ok := e.Credito()
			if !ok {
				continue
			}
			out = append(out, dto.CreditoPendienteResponse{
				VentaID:    job.VentaID.String(),
				ProductoID: job.ProductoID.String(),
				Cantidad:   job.Cantidad,
				Nota:       job.Nota,
				Motivo:     e.Reason,
				Intentos:   e.Attempts,
				FallidoEn:  e.FailedAt,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
