package service

import (
	"context"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/money"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VentaService records and lists sales. It is the in-process stand-in for
// the sales subsystem the arqueo reads from.
type VentaService interface {
	RegistrarVenta(ctx context.Context, cajeroID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo       repository.VentaRepository
	inventario InventarioService
	cierres    VerificadorCierre
	guard      *infra.Guard
	loc        *time.Location
	ahora      func() time.Time
}

func NewVentaService(
	repo repository.VentaRepository,
	inventario InventarioService,
	cierres VerificadorCierre,
	guard *infra.Guard,
	loc *time.Location,
) VentaService {
	if loc == nil {
		loc = time.Local
	}
	return &ventaService{
		repo:       repo,
		inventario: inventario,
		cierres:    cierres,
		guard:      guard,
		loc:        loc,
		ahora:      time.Now,
	}
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
//   1. Parse ids and compute the total from the items
//   2. Refuse dates already closed by an arqueo
//   3. Persist venta + items
//   4. Debit stock per item (best effort, logged)

func (s *ventaService) RegistrarVenta(ctx context.Context, cajeroID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	if len(req.Items) == 0 {
		return nil, &ValidationError{Errores: []string{"La venta debe tener al menos un ítem"}}
	}

	venta := &model.Venta{
		CajeroID:   cajeroID,
		MetodoPago: req.MetodoPago,
		Estado:     model.VentaCompletada,
		CreatedAt:  s.ahora(),
	}
	if req.CreatedAt != nil {
		venta.CreatedAt = *req.CreatedAt
	}
	if req.TurnoID != "" {
		turnoID, err := uuid.Parse(req.TurnoID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"turno_id inválido"}}
		}
		venta.TurnoID = &turnoID
	}

	total := money.Zero
	for _, it := range req.Items {
		productoID, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"producto_id inválido: " + it.ProductoID}}
		}
		if it.Cantidad <= 0 || it.PrecioUnitario.IsNegative() {
			return nil, &ValidationError{Errores: []string{"Cantidad y precio deben ser positivos"}}
		}
		venta.Items = append(venta.Items, model.VentaItem{
			ProductoID:     productoID,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
		})
		total = total.Add(it.PrecioUnitario.MulInt(int64(it.Cantidad)))
	}
	venta.Total = total

	fecha := arqueo.FechaDe(venta.CreatedAt, s.loc)
	if s.cierres != nil {
		cerrada, err := s.cierres.ExisteParaFecha(ctx, fecha, &cajeroID)
		if err != nil {
			return nil, err
		}
		if cerrada {
			return nil, &ReconciliationLockedError{Fecha: fecha, CajeroID: &cajeroID}
		}
	}

	if err := persistir(ctx, s.guard, "venta.crear", func(ctx context.Context) error {
		return s.repo.Create(ctx, venta)
	}); err != nil {
		return nil, err
	}

	if s.inventario != nil {
		for _, it := range venta.Items {
			_, err := s.inventario.Registrar(ctx, dto.MovimientoStockRequest{
				ProductoID: it.ProductoID.String(),
				Tipo:       model.StockSalida,
				Cantidad:   it.Cantidad,
				Nota:       "Venta " + venta.ID.String(),
				VentaID:    venta.ID.String(),
			})
			if err != nil {
				log.Warn().Err(err).Str("venta_id", venta.ID.String()).
					Str("producto_id", it.ProductoID.String()).Msg("stock debit failed")
			}
		}
	}

	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("cajero_id", cajeroID.String()).
		Str("metodo_pago", venta.MetodoPago).
		Str("total", venta.Total.String()).
		Msg("venta registrada")
	return ventaToResponse(venta), nil
}

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	var venta *model.Venta
	if err := persistir(ctx, s.guard, "venta.obtener", func(ctx context.Context) error {
		var err error
		venta, err = s.repo.FindByID(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	return ventaToResponse(venta), nil
}

// ── ListVentas ────────────────────────────────────────────────────────────────
// Dates are calendar days in the store timezone; an empty date_from means
// today and an empty date_to means the same day as date_from.

func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	desdeFecha := filter.DateFrom
	if desdeFecha == "" {
		desdeFecha = arqueo.FechaDe(s.ahora(), s.loc)
	}
	hastaFecha := filter.DateTo
	if hastaFecha == "" {
		hastaFecha = desdeFecha
	}
	desde, _, err := arqueo.RangoDia(desdeFecha, s.loc)
	if err != nil {
		return nil, &ValidationError{Errores: []string{"date_from inválido"}}
	}
	_, hasta, err := arqueo.RangoDia(hastaFecha, s.loc)
	if err != nil {
		return nil, &ValidationError{Errores: []string{"date_to inválido"}}
	}
	if !desde.Before(hasta) {
		return nil, &ValidationError{Errores: []string{"La fecha inicial es posterior a la final"}}
	}

	rf := repository.VentaFilter{
		Desde:  desde,
		Hasta:  hasta,
		Estado: filter.Estado,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.CajeroID != "" {
		id, err := uuid.Parse(filter.CajeroID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"cajero_id inválido"}}
		}
		rf.CajeroID = &id
	}

	var (
		ventas []model.Venta
		total  int64
	)
	if err := persistir(ctx, s.guard, "venta.listar", func(ctx context.Context) error {
		var err error
		ventas, total, err = s.repo.List(ctx, rf)
		return err
	}); err != nil {
		return nil, err
	}

	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:              v.ID.String(),
		CajeroID:        v.CajeroID.String(),
		MetodoPago:      v.MetodoPago,
		Total:           v.Total,
		Estado:          v.Estado,
		MotivoAnulacion: v.MotivoAnulacion,
		Items:           make([]dto.ItemVentaResponse, 0, len(v.Items)),
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.TurnoID != nil {
		t := v.TurnoID.String()
		resp.TurnoID = &t
	}
	if v.AnuladaEn != nil {
		a := v.AnuladaEn.UTC().Format(time.RFC3339)
		resp.AnuladaEn = &a
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.PrecioUnitario.MulInt(int64(it.Cantidad)),
		})
	}
	return resp
}
