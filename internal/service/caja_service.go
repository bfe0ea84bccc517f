package service

import (
	"context"
	"time"

	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/repository"

	"github.com/google/uuid"
)

// CajaService opens and reads shifts. A shift is created at login and never
// modified afterwards.
type CajaService interface {
	AbrirTurno(ctx context.Context, cajeroID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error)
	ObtenerTurno(ctx context.Context, id uuid.UUID) (*dto.TurnoResponse, error)
}

type cajaService struct {
	repo  repository.CajaRepository
	guard *infra.Guard
	ahora func() time.Time
}

func NewCajaService(repo repository.CajaRepository, guard *infra.Guard) CajaService {
	return &cajaService{repo: repo, guard: guard, ahora: time.Now}
}

// ── AbrirTurno ────────────────────────────────────────────────────────────────

func (s *cajaService) AbrirTurno(ctx context.Context, cajeroID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error) {
	if req.Base.IsNegative() {
		return nil, &ValidationError{Errores: []string{"La base no puede ser negativa"}}
	}
	inicio := s.ahora()
	if req.IniciadoEn != nil {
		inicio = *req.IniciadoEn
	}

	turno := &model.Turno{
		CajeroID:   cajeroID,
		IniciadoEn: inicio,
		Base:       req.Base,
	}
	if err := persistir(ctx, s.guard, "turno.crear", func(ctx context.Context) error {
		return s.repo.CreateTurno(ctx, turno)
	}); err != nil {
		return nil, err
	}
	return turnoToResponse(turno), nil
}

// ── ObtenerTurno ──────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerTurno(ctx context.Context, id uuid.UUID) (*dto.TurnoResponse, error) {
	var turno *model.Turno
	if err := persistir(ctx, s.guard, "turno.obtener", func(ctx context.Context) error {
		var err error
		turno, err = s.repo.FindTurnoByID(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	return turnoToResponse(turno), nil
}

func turnoToResponse(t *model.Turno) *dto.TurnoResponse {
	return &dto.TurnoResponse{
		ID:         t.ID.String(),
		CajeroID:   t.CajeroID.String(),
		IniciadoEn: t.IniciadoEn.UTC().Format(time.RFC3339),
		Base:       t.Base,
	}
}
