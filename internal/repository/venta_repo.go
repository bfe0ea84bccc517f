package repository

import (
	"context"
	"time"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VentaFilter narrows List. Zero values mean no filter.
type VentaFilter struct {
	Desde    time.Time
	Hasta    time.Time
	CajeroID *uuid.UUID
	Estado   string
	Page     int
	Limit    int
}

type VentaRepository interface {
	Create(ctx context.Context, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// ListRango returns every sale with desde <= created_at < hasta, voided
	// ones included, so callers can apply their own filter.
	ListRango(ctx context.Context, desde, hasta time.Time, cajeroID *uuid.UUID) ([]model.Venta, error)
	List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error)
	// MarcarAnulada flips a completed sale to anulada. It reports false when
	// the sale was already voided (or does not exist).
	MarcarAnulada(ctx context.Context, id uuid.UUID, motivo string, at time.Time) (bool, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	if !v.CreatedAt.IsZero() {
		v.CreatedAt = v.CreatedAt.UTC()
	}
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) ListRango(ctx context.Context, desde, hasta time.Time, cajeroID *uuid.UUID) ([]model.Venta, error) {
	q := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", desde.UTC(), hasta.UTC())
	if cajeroID != nil {
		q = q.Where("cajero_id = ?", *cajeroID)
	}
	var ventas []model.Venta
	err := q.Order("created_at ASC").Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Venta{})
	if !filter.Desde.IsZero() {
		q = q.Where("created_at >= ?", filter.Desde.UTC())
	}
	if !filter.Hasta.IsZero() {
		q = q.Where("created_at < ?", filter.Hasta.UTC())
	}
	if filter.CajeroID != nil {
		q = q.Where("cajero_id = ?", *filter.CajeroID)
	}
	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var ventas []model.Venta
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&ventas).Error
	return ventas, total, err
}

func (r *ventaRepo) MarcarAnulada(ctx context.Context, id uuid.UUID, motivo string, at time.Time) (bool, error) {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ? AND estado <> ?", id, model.VentaAnulada).
		Updates(map[string]interface{}{
			"estado":           model.VentaAnulada,
			"motivo_anulacion": motivo,
			"anulada_en":       at,
		})
	return res.RowsAffected > 0, res.Error
}
