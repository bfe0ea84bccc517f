package service

import (
	"context"
	"errors"
	"time"

	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventarioService is the stock ledger. Stock on hand is the signed sum of
// all movements of a product.
type InventarioService interface {
	Registrar(ctx context.Context, req dto.MovimientoStockRequest) (*dto.MovimientoStockResponse, error)
	// AcreditarAnulacion books the ENTRADA that returns a voided item to
	// stock. It reports created=false when the credit already exists.
	AcreditarAnulacion(ctx context.Context, ventaID, productoID uuid.UUID, cantidad int, nota string) (bool, error)
	Stock(ctx context.Context, productoID uuid.UUID) (int, error)
	Listar(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
}

type inventarioService struct {
	repo  repository.MovimientoStockRepository
	guard *infra.Guard
}

func NewInventarioService(repo repository.MovimientoStockRepository, guard *infra.Guard) InventarioService {
	return &inventarioService{repo: repo, guard: guard}
}

func (s *inventarioService) Registrar(ctx context.Context, req dto.MovimientoStockRequest) (*dto.MovimientoStockResponse, error) {
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, &ValidationError{Errores: []string{"producto_id inválido"}}
	}
	if req.Cantidad <= 0 {
		return nil, &ValidationError{Errores: []string{"La cantidad debe ser mayor a cero"}}
	}
	if req.Tipo != model.StockEntrada && req.Tipo != model.StockSalida {
		return nil, &ValidationError{Errores: []string{"Tipo de movimiento inválido"}}
	}

	mov := &model.MovimientoStock{
		ProductoID: productoID,
		Tipo:       req.Tipo,
		Cantidad:   req.Cantidad,
		Nota:       req.Nota,
	}
	if req.VentaID != "" {
		ventaID, err := uuid.Parse(req.VentaID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"venta_id inválido"}}
		}
		mov.VentaID = &ventaID
	}

	err = persistir(ctx, s.guard, "stock.crear", func(ctx context.Context) error {
		return s.repo.Create(ctx, mov)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, &ValidationError{Errores: []string{"La venta ya tiene un crédito para este producto"}}
	}
	if err != nil {
		return nil, err
	}

	stock, err := s.Stock(ctx, productoID)
	if err != nil {
		return nil, err
	}
	return stockToResponse(mov, &stock), nil
}

// AcreditarAnulacion is keyed by (venta, producto); callers pass the summed
// quantity of every line of the product. The read avoids a write in the
// common replay case; the partial unique index settles concurrent ones.
func (s *inventarioService) AcreditarAnulacion(ctx context.Context, ventaID, productoID uuid.UUID, cantidad int, nota string) (bool, error) {
	var existe bool
	if err := persistir(ctx, s.guard, "stock.existe_credito", func(ctx context.Context) error {
		var err error
		existe, err = s.repo.ExisteCredito(ctx, ventaID, productoID)
		return err
	}); err != nil {
		return false, err
	}
	if existe {
		return false, nil
	}

	vid := ventaID
	mov := &model.MovimientoStock{
		ProductoID: productoID,
		Tipo:       model.StockEntrada,
		Cantidad:   cantidad,
		Nota:       nota,
		VentaID:    &vid,
	}
	err := persistir(ctx, s.guard, "stock.acreditar", func(ctx context.Context) error {
		return s.repo.Create(ctx, mov)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	log.Info().
		Str("venta_id", ventaID.String()).
		Str("producto_id", productoID.String()).
		Int("cantidad", cantidad).
		Msg("stock credited for void")
	return true, nil
}

func (s *inventarioService) Stock(ctx context.Context, productoID uuid.UUID) (int, error) {
	var stock int
	err := persistir(ctx, s.guard, "stock.saldo", func(ctx context.Context) error {
		var err error
		stock, err = s.repo.Stock(ctx, productoID)
		return err
	})
	return stock, err
}

func (s *inventarioService) Listar(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	rf := repository.MovimientoStockFilter{Tipo: filter.Tipo, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		id, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"producto_id inválido"}}
		}
		rf.ProductoID = &id
	}
	if filter.VentaID != "" {
		id, err := uuid.Parse(filter.VentaID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"venta_id inválido"}}
		}
		rf.VentaID = &id
	}

	var (
		movs  []model.MovimientoStock
		total int64
	)
	if err := persistir(ctx, s.guard, "stock.listar", func(ctx context.Context) error {
		var err error
		movs, total, err = s.repo.List(ctx, rf)
		return err
	}); err != nil {
		return nil, err
	}

	resp := &dto.MovimientoStockListResponse{
		Data:  make([]dto.MovimientoStockResponse, 0, len(movs)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range movs {
		resp.Data = append(resp.Data, *stockToResponse(&movs[i], nil))
	}
	return resp, nil
}

// stockToResponse reports stock on hand only when it is given.
func stockToResponse(m *model.MovimientoStock, stock *int) *dto.MovimientoStockResponse {
	resp := &dto.MovimientoStockResponse{
		ID:         m.ID.String(),
		ProductoID: m.ProductoID.String(),
		Tipo:       m.Tipo,
		Cantidad:   m.Cantidad,
		Nota:       m.Nota,
		Stock:      stock,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.VentaID != nil {
		s := m.VentaID.String()
		resp.VentaID = &s
	}
	return resp
}
