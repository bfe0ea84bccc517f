package repository

import (
	"context"
	"errors"

	"cajapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArqueoRepository is the audit store. Rows are inserted and deleted, never
// updated.
type ArqueoRepository interface {
	Create(ctx context.Context, a *model.Arqueo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Arqueo, error)
	FindPorFechaTurno(ctx context.Context, fecha string, turnoID uuid.UUID) (*model.Arqueo, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	ExistePorFecha(ctx context.Context, fecha string, cajeroID *uuid.UUID) (bool, error)
	// ListRango returns arqueos with desde <= fecha <= hasta, oldest first.
	ListRango(ctx context.Context, desde, hasta string, cajeroID *uuid.UUID) ([]model.Arqueo, error)
	// UltimoAntesDe returns the most recent arqueo of the cashier strictly
	// before fecha, or nil when there is none.
	UltimoAntesDe(ctx context.Context, fecha string, cajeroID uuid.UUID) (*model.Arqueo, error)
}

type arqueoRepo struct{ db *gorm.DB }

func NewArqueoRepository(db *gorm.DB) ArqueoRepository { return &arqueoRepo{db: db} }

func (r *arqueoRepo) Create(ctx context.Context, a *model.Arqueo) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *arqueoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Arqueo, error) {
	var a model.Arqueo
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *arqueoRepo) FindPorFechaTurno(ctx context.Context, fecha string, turnoID uuid.UUID) (*model.Arqueo, error) {
	var a model.Arqueo
	err := r.db.WithContext(ctx).Where("fecha = ? AND turno_id = ?", fecha, turnoID).First(&a).Error
	return &a, err
}

func (r *arqueoRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Arqueo{})
	return res.RowsAffected, res.Error
}

func (r *arqueoRepo) ExistePorFecha(ctx context.Context, fecha string, cajeroID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Arqueo{}).Where("fecha = ?", fecha)
	if cajeroID != nil {
		q = q.Where("cajero_id = ?", *cajeroID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *arqueoRepo) ListRango(ctx context.Context, desde, hasta string, cajeroID *uuid.UUID) ([]model.Arqueo, error) {
	q := r.db.WithContext(ctx).Where("fecha >= ? AND fecha <= ?", desde, hasta)
	if cajeroID != nil {
		q = q.Where("cajero_id = ?", *cajeroID)
	}
	var out []model.Arqueo
	err := q.Order("fecha ASC, created_at ASC").Find(&out).Error
	return out, err
}

func (r *arqueoRepo) UltimoAntesDe(ctx context.Context, fecha string, cajeroID uuid.UUID) (*model.Arqueo, error) {
	var a model.Arqueo
	err := r.db.WithContext(ctx).
		Where("fecha < ? AND cajero_id = ?", fecha, cajeroID).
		Order("fecha DESC, created_at DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
