package repository

import (
	"context"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CajaRepository stores shifts and the manual cash movements of the drawer.
type CajaRepository interface {
	CreateTurno(ctx context.Context, t *model.Turno) error
	FindTurnoByID(ctx context.Context, id uuid.UUID) (*model.Turno, error)
	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCaja, error)
	// DeleteMovimiento hard-deletes and reports how many rows were removed.
	DeleteMovimiento(ctx context.Context, id uuid.UUID) (int64, error)
	// ListMovimientos returns the movements of fecha, optionally for a single
	// cashier, in insertion order.
	ListMovimientos(ctx context.Context, fecha string, cajeroID *uuid.UUID) ([]model.MovimientoCaja, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) CreateTurno(ctx context.Context, t *model.Turno) error {
	t.IniciadoEn = t.IniciadoEn.UTC()
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *cajaRepo) FindTurnoByID(ctx context.Context, id uuid.UUID) (*model.Turno, error) {
	var t model.Turno
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	m.OcurridoEn = m.OcurridoEn.UTC()
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCaja, error) {
	var m model.MovimientoCaja
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *cajaRepo) DeleteMovimiento(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.MovimientoCaja{})
	return res.RowsAffected, res.Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, fecha string, cajeroID *uuid.UUID) ([]model.MovimientoCaja, error) {
	q := r.db.WithContext(ctx).Where("fecha = ?", fecha)
	if cajeroID != nil {
		q = q.Where("cajero_id = ?", *cajeroID)
	}
	var movs []model.MovimientoCaja
	err := q.Order("created_at ASC").Find(&movs).Error
	return movs, err
}
