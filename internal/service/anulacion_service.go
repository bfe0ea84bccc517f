package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/repository"
	"cajapos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EncoladorCreditos queues inventory credits that failed inline.
type EncoladorCreditos interface {
	EncolarCredito(ctx context.Context, job worker.CreditoJob) error
}

// AnulacionService voids sales. A sale whose date is covered by a finalized
// arqueo cannot be voided until that arqueo is removed.
type AnulacionService interface {
	AnularVenta(ctx context.Context, ventaID uuid.UUID, req dto.AnularVentaRequest) (*dto.AnulacionResponse, error)
}

type anulacionService struct {
	ventas     repository.VentaRepository
	cierres    VerificadorCierre
	inventario InventarioService
	cola       EncoladorCreditos
	guard      *infra.Guard
	metrics    *infra.Metrics
	loc        *time.Location
	ahora      func() time.Time
}

func NewAnulacionService(
	ventas repository.VentaRepository,
	cierres VerificadorCierre,
	inventario InventarioService,
	cola EncoladorCreditos,
	guard *infra.Guard,
	m *infra.Metrics,
	loc *time.Location,
) AnulacionService {
	if loc == nil {
		loc = time.Local
	}
	return &anulacionService{
		ventas:     ventas,
		cierres:    cierres,
		inventario: inventario,
		cola:       cola,
		guard:      guard,
		metrics:    m,
		loc:        loc,
		ahora:      time.Now,
	}
}

// ── AnularVenta ───────────────────────────────────────────────────────────────
// Steps run in order and stop at the first refusal:
//   1. confirmation token present
//   2. sale not already void
//   3. sale date not closed by an arqueo
//   4. one ENTRADA per product for the summed quantity of its lines,
//      failures queued for retry
//   5. sale marked anulada

func (s *anulacionService) AnularVenta(ctx context.Context, ventaID uuid.UUID, req dto.AnularVentaRequest) (*dto.AnulacionResponse, error) {
	token := strings.TrimSpace(req.TokenConfirmacion)
	if token == "" {
		s.metrics.Anulacion("rechazada")
		return nil, &ValidationError{Errores: []string{ErrTokenRequerido.Error()}}
	}

	var venta *model.Venta
	if err := persistir(ctx, s.guard, "venta.obtener", func(ctx context.Context) error {
		var err error
		venta, err = s.ventas.FindByID(ctx, ventaID)
		return err
	}); err != nil {
		return nil, err
	}
	if venta.Anulada() {
		s.metrics.Anulacion("ya_anulada")
		return nil, ErrVentaYaAnulada
	}

	fecha := arqueo.FechaDe(venta.CreatedAt, s.loc)
	cajeroID := venta.CajeroID
	cerrada, err := s.cierres.ExisteParaFecha(ctx, fecha, &cajeroID)
	if err != nil {
		s.metrics.Anulacion("error")
		log.Error().Err(err).Str("venta_id", ventaID.String()).Str("fecha", fecha).
			Msg("void refused: closure lookup failed")
		return nil, err
	}
	if cerrada {
		s.metrics.Anulacion("bloqueada")
		log.Warn().Str("venta_id", ventaID.String()).Str("fecha", fecha).
			Msg("void refused: date already reconciled")
		return nil, &ReconciliationLockedError{Fecha: fecha, CajeroID: &cajeroID}
	}

	resp := &dto.AnulacionResponse{VentaID: ventaID.String()}
	nota := fmt.Sprintf("Anulación venta %s (token %s): %s", ventaID, token, req.Motivo)
	for _, item := range porProducto(venta.Items) {
		creado, err := s.inventario.AcreditarAnulacion(ctx, ventaID, item.ProductoID, item.Cantidad, nota)
		if err != nil {
			s.creditoFallido(ctx, &InventoryCreditError{
				VentaID:    ventaID,
				ProductoID: item.ProductoID,
				Cantidad:   item.Cantidad,
				Err:        err,
			}, nota)
			resp.Pendiente++
			continue
		}
		if creado {
			resp.Creditos++
		} else {
			resp.Omitidos++
		}
	}

	var marcada bool
	if err := persistir(ctx, s.guard, "venta.anular", func(ctx context.Context) error {
		var err error
		marcada, err = s.ventas.MarcarAnulada(ctx, ventaID, req.Motivo, s.ahora())
		return err
	}); err != nil {
		s.metrics.Anulacion("error")
		return nil, err
	}
	if !marcada {
		s.metrics.Anulacion("ya_anulada")
		return nil, ErrVentaYaAnulada
	}

	resp.Estado = model.VentaAnulada
	s.metrics.Anulacion("ok")
	log.Info().
		Str("venta_id", ventaID.String()).
		Int("creditos", resp.Creditos).
		Int("omitidos", resp.Omitidos).
		Int("pendientes", resp.Pendiente).
		Msg("venta anulada")
	return resp, nil
}

func (s *anulacionService) creditoFallido(ctx context.Context, ce *InventoryCreditError, nota string) {
	etapa := "inline"
	var pe *PersistenceUnavailableError
	if errors.As(ce.Err, &pe) {
		etapa = "persistencia"
	}
	s.metrics.CreditoFallido(etapa)
	log.Error().Err(ce).Str("venta_id", ce.VentaID.String()).Str("producto_id", ce.ProductoID.String()).
		Msg("inventory credit failed, queued for retry")

	if s.cola == nil {
		return
	}
	job := worker.CreditoJob{VentaID: ce.VentaID, ProductoID: ce.ProductoID, Cantidad: ce.Cantidad, Nota: nota}
	if err := s.cola.EncolarCredito(ctx, job); err != nil {
		s.metrics.CreditoFallido("encolar")
		log.Error().Err(err).Str("venta_id", ce.VentaID.String()).Msg("failed to enqueue inventory credit")
	}
}

// porProducto folds the lines of a sale into one per product, in order of
// first appearance. The void credit is keyed by (venta, producto), so two
// lines of the same product must travel as one credit.
func porProducto(items []model.VentaItem) []model.VentaItem {
	out := make([]model.VentaItem, 0, len(items))
	pos := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if i, ok := pos[it.ProductoID]; ok {
			out[i].Cantidad += it.Cantidad
			continue
		}
		pos[it.ProductoID] = len(out)
		out = append(out, it)
	}
	return out
}
