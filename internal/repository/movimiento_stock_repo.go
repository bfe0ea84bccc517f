package repository

import (
	"context"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	ProductoID *uuid.UUID
	VentaID    *uuid.UUID
	Tipo       string
	Page       int
	Limit      int
}

type MovimientoStockRepository interface {
	Create(ctx context.Context, m *model.MovimientoStock) error
	// ExisteCredito reports whether an ENTRADA already exists for the pair.
	ExisteCredito(ctx context.Context, ventaID, productoID uuid.UUID) (bool, error)
	Stock(ctx context.Context, productoID uuid.UUID) (int, error)
	List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
}

type movimientoStockRepo struct{ db *gorm.DB }

func NewMovimientoStockRepository(db *gorm.DB) MovimientoStockRepository {
	return &movimientoStockRepo{db: db}
}

func (r *movimientoStockRepo) Create(ctx context.Context, m *model.MovimientoStock) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movimientoStockRepo) ExisteCredito(ctx context.Context, ventaID, productoID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Where("venta_id = ? AND producto_id = ? AND tipo = ?", ventaID, productoID, model.StockEntrada).
		Count(&n).Error
	return n > 0, err
}

func (r *movimientoStockRepo) Stock(ctx context.Context, productoID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Select("COALESCE(SUM(CASE WHEN tipo = ? THEN -cantidad ELSE cantidad END), 0)", model.StockSalida).
		Where("producto_id = ?", productoID).
		Scan(&total).Error
	return total, err
}

func (r *movimientoStockRepo) List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.VentaID != nil {
		q = q.Where("venta_id = ?", *filter.VentaID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movimientos []model.MovimientoStock
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}
