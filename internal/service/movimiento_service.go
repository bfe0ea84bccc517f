package service

import (
	"context"
	"errors"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/money"
	"cajapos/internal/repository"

	"github.com/google/uuid"
)

// VerificadorCierre answers whether a date is covered by a finalized arqueo.
// ArqueoService implements it.
type VerificadorCierre interface {
	ExisteParaFecha(ctx context.Context, fecha string, cajeroID *uuid.UUID) (bool, error)
}

// MovimientoService is the manual cash movement ledger. Movements of a
// finalized date are frozen: adding or removing one would make the stored
// arqueo totals stale.
type MovimientoService interface {
	Registrar(ctx context.Context, cajeroID uuid.UUID, req dto.MovimientoCajaRequest) (*model.MovimientoCaja, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	Listar(ctx context.Context, fecha string, cajeroID *uuid.UUID) ([]model.MovimientoCaja, error)
	Neto(ctx context.Context, fecha string, cajeroID *uuid.UUID) (money.Money, error)
}

type movimientoService struct {
	repo    repository.CajaRepository
	cierres VerificadorCierre
	guard   *infra.Guard
	loc     *time.Location
	ahora   func() time.Time
}

func NewMovimientoService(repo repository.CajaRepository, cierres VerificadorCierre, guard *infra.Guard, loc *time.Location) MovimientoService {
	if loc == nil {
		loc = time.Local
	}
	return &movimientoService{repo: repo, cierres: cierres, guard: guard, loc: loc, ahora: time.Now}
}

func (s *movimientoService) Registrar(ctx context.Context, cajeroID uuid.UUID, req dto.MovimientoCajaRequest) (*model.MovimientoCaja, error) {
	ocurrido := s.ahora()
	if req.OcurridoEn != nil {
		ocurrido = *req.OcurridoEn
	}
	fecha := req.Fecha
	if fecha == "" {
		fecha = arqueo.FechaDe(ocurrido, s.loc)
	}

	mov := &model.MovimientoCaja{
		Fecha:      fecha,
		CajeroID:   cajeroID,
		Tipo:       req.Tipo,
		Monto:      req.Monto,
		Concepto:   req.Concepto,
		OcurridoEn: ocurrido,
	}
	if req.TurnoID != "" {
		turnoID, err := uuid.Parse(req.TurnoID)
		if err != nil {
			return nil, &ValidationError{Errores: []string{"turno_id inválido"}}
		}
		mov.TurnoID = &turnoID
	}
	if err := arqueo.ValidarMovimiento(*mov); err != nil {
		return nil, err
	}

	if err := s.verificarAbierta(ctx, fecha, cajeroID); err != nil {
		return nil, err
	}

	if err := persistir(ctx, s.guard, "movimiento.crear", func(ctx context.Context) error {
		return s.repo.CreateMovimiento(ctx, mov)
	}); err != nil {
		return nil, err
	}
	return mov, nil
}

// Eliminar is idempotent: removing a missing movement is a no-op.
func (s *movimientoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	var mov *model.MovimientoCaja
	err := persistir(ctx, s.guard, "movimiento.obtener", func(ctx context.Context) error {
		var err error
		mov, err = s.repo.FindMovimientoByID(ctx, id)
		return err
	})
	if errors.Is(err, ErrNoEncontrado) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.verificarAbierta(ctx, mov.Fecha, mov.CajeroID); err != nil {
		return err
	}

	return persistir(ctx, s.guard, "movimiento.eliminar", func(ctx context.Context) error {
		_, err := s.repo.DeleteMovimiento(ctx, id)
		return err
	})
}

func (s *movimientoService) Listar(ctx context.Context, fecha string, cajeroID *uuid.UUID) ([]model.MovimientoCaja, error) {
	if !arqueo.ValidarFecha(fecha) {
		return nil, &ValidationError{Errores: []string{arqueo.MsgFechaVacia}}
	}
	var movs []model.MovimientoCaja
	err := persistir(ctx, s.guard, "movimiento.listar", func(ctx context.Context) error {
		var err error
		movs, err = s.repo.ListMovimientos(ctx, fecha, cajeroID)
		return err
	})
	return movs, err
}

func (s *movimientoService) Neto(ctx context.Context, fecha string, cajeroID *uuid.UUID) (money.Money, error) {
	movs, err := s.Listar(ctx, fecha, cajeroID)
	if err != nil {
		return money.Zero, err
	}
	return arqueo.NetoMovimientos(movs, fecha, cajeroID), nil
}

func (s *movimientoService) verificarAbierta(ctx context.Context, fecha string, cajeroID uuid.UUID) error {
	cerrada, err := s.cierres.ExisteParaFecha(ctx, fecha, &cajeroID)
	if err != nil {
		return err
	}
	if cerrada {
		return &ReconciliationLockedError{Fecha: fecha, CajeroID: &cajeroID}
	}
	return nil
}
