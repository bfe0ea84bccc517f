package service

import (
	"context"
	"errors"
	"time"

	"cajapos/internal/infra"

	"gorm.io/gorm"
)

// NewPersistenceGuard builds the breaker every service shares. Not-found and
// constraint answers are not outages.
func NewPersistenceGuard(timeout time.Duration, fallos uint32, abierto time.Duration, m *infra.Metrics) *infra.Guard {
	cfg := infra.DefaultGuardConfig("postgres")
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if fallos > 0 {
		cfg.MaxFailures = fallos
	}
	if abierto > 0 {
		cfg.OpenTimeout = abierto
	}
	cfg.Benign = esBenigno
	return infra.NewGuard(cfg, m)
}

func esBenigno(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated)
}

// persistir runs fn under the guard and maps the outcome onto the service
// error set: not found becomes ErrNoEncontrado, constraint violations become
// *ValidationError, outages become *PersistenceUnavailableError.
func persistir(ctx context.Context, g *infra.Guard, op string, fn func(ctx context.Context) error) error {
	err := g.Do(ctx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoEncontrado
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return &ValidationError{Errores: []string{"Los datos no cumplen las restricciones del almacenamiento"}}
	}
	var ue *infra.UnavailableError
	if errors.As(err, &ue) {
		return &PersistenceUnavailableError{Op: op, Err: ue.Err}
	}
	return err
}
