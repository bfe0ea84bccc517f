package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"cajapos/internal/model"
	"cajapos/internal/repository"
	"cajapos/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubArqueoRepo is an in-memory ArqueoRepository. A non-nil fallo makes every
// call fail as if the database were unreachable.
type stubArqueoRepo struct {
	mu      sync.Mutex
	arqueos map[uuid.UUID]*model.Arqueo
	fallo   error
}

func newStubArqueoRepo() *stubArqueoRepo {
	return &stubArqueoRepo{arqueos: make(map[uuid.UUID]*model.Arqueo)}
}

func (r *stubArqueoRepo) Create(_ context.Context, a *model.Arqueo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return r.fallo
	}
	for _, x := range r.arqueos {
		if x.Fecha == a.Fecha && x.TurnoID == a.TurnoID {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.arqueos[a.ID] = &cp
	return nil
}

func (r *stubArqueoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Arqueo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	a, ok := r.arqueos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubArqueoRepo) FindPorFechaTurno(_ context.Context, fecha string, turnoID uuid.UUID) (*model.Arqueo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	for _, a := range r.arqueos {
		if a.Fecha == fecha && a.TurnoID == turnoID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubArqueoRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return 0, r.fallo
	}
	if _, ok := r.arqueos[id]; !ok {
		return 0, nil
	}
	delete(r.arqueos, id)
	return 1, nil
}

func (r *stubArqueoRepo) ExistePorFecha(_ context.Context, fecha string, cajeroID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return false, r.fallo
	}
	for _, a := range r.arqueos {
		if a.Fecha == fecha && (cajeroID == nil || a.CajeroID == *cajeroID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubArqueoRepo) ListRango(_ context.Context, desde, hasta string, cajeroID *uuid.UUID) ([]model.Arqueo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	var out []model.Arqueo
	for _, a := range r.arqueos {
		if a.Fecha < desde || a.Fecha > hasta {
			continue
		}
		if cajeroID != nil && a.CajeroID != *cajeroID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha < out[j].Fecha })
	return out, nil
}

func (r *stubArqueoRepo) UltimoAntesDe(_ context.Context, fecha string, cajeroID uuid.UUID) (*model.Arqueo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	var ultimo *model.Arqueo
	for _, a := range r.arqueos {
		if a.CajeroID != cajeroID || a.Fecha >= fecha {
			continue
		}
		if ultimo == nil || a.Fecha > ultimo.Fecha {
			cp := *a
			ultimo = &cp
		}
	}
	return ultimo, nil
}

var _ repository.ArqueoRepository = (*stubArqueoRepo)(nil)

// stubCajaRepo keeps shifts and cash movements in memory.
type stubCajaRepo struct {
	mu          sync.Mutex
	turnos      map[uuid.UUID]*model.Turno
	movimientos []model.MovimientoCaja
}

func newStubCajaRepo() *stubCajaRepo {
	return &stubCajaRepo{turnos: make(map[uuid.UUID]*model.Turno)}
}

func (r *stubCajaRepo) CreateTurno(_ context.Context, t *model.Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	r.turnos[t.ID] = &cp
	return nil
}

func (r *stubCajaRepo) FindTurnoByID(_ context.Context, id uuid.UUID) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubCajaRepo) FindMovimientoByID(_ context.Context, id uuid.UUID) (*model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movimientos {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCajaRepo) DeleteMovimiento(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.movimientos {
		if m.ID == id {
			r.movimientos = append(r.movimientos[:i], r.movimientos[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *stubCajaRepo) ListMovimientos(_ context.Context, fecha string, cajeroID *uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.Fecha == fecha && (cajeroID == nil || m.CajeroID == *cajeroID) {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

// stubVentaRepo is an in-memory VentaRepository.
type stubVentaRepo struct {
	mu     sync.Mutex
	ventas map[uuid.UUID]*model.Venta
	fallo  error
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *stubVentaRepo) Create(_ context.Context, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return r.fallo
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	for i := range v.Items {
		v.Items[i].VentaID = v.ID
	}
	cp := *v
	r.ventas[v.ID] = &cp
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVentaRepo) ListRango(_ context.Context, desde, hasta time.Time, cajeroID *uuid.UUID) ([]model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return nil, r.fallo
	}
	var out []model.Venta
	for _, v := range r.ventas {
		if v.CreatedAt.Before(desde) || !v.CreatedAt.Before(hasta) {
			continue
		}
		if cajeroID != nil && v.CajeroID != *cajeroID {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubVentaRepo) List(ctx context.Context, f repository.VentaFilter) ([]model.Venta, int64, error) {
	todas, err := r.ListRango(ctx, f.Desde, f.Hasta, f.CajeroID)
	if err != nil {
		return nil, 0, err
	}
	var out []model.Venta
	for _, v := range todas {
		if f.Estado != "" && f.Estado != "all" && v.Estado != f.Estado {
			continue
		}
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) MarcarAnulada(_ context.Context, id uuid.UUID, motivo string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallo != nil {
		return false, r.fallo
	}
	v, ok := r.ventas[id]
	if !ok || v.Anulada() {
		return false, nil
	}
	v.Estado = model.VentaAnulada
	v.MotivoAnulacion = &motivo
	v.AnuladaEn = &at
	return true, nil
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// stubStockRepo keeps stock movements in memory. fallos fails Create per
// product; the pair (venta, producto) is unique for ENTRADA rows.
type stubStockRepo struct {
	mu     sync.Mutex
	movs   []model.MovimientoStock
	fallos map[uuid.UUID]error
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{fallos: make(map[uuid.UUID]error)}
}

func (r *stubStockRepo) Create(_ context.Context, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fallos[m.ProductoID]; err != nil {
		return err
	}
	if m.Tipo == model.StockEntrada && m.VentaID != nil {
		for _, x := range r.movs {
			if x.Tipo == model.StockEntrada && x.VentaID != nil && *x.VentaID == *m.VentaID && x.ProductoID == m.ProductoID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movs = append(r.movs, *m)
	return nil
}

func (r *stubStockRepo) ExisteCredito(_ context.Context, ventaID, productoID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fallos[productoID]; err != nil {
		return false, err
	}
	for _, x := range r.movs {
		if x.Tipo == model.StockEntrada && x.VentaID != nil && *x.VentaID == ventaID && x.ProductoID == productoID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubStockRepo) Stock(_ context.Context, productoID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, x := range r.movs {
		if x.ProductoID == productoID {
			total += x.Firmada()
		}
	}
	return total, nil
}

func (r *stubStockRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, x := range r.movs {
		if f.ProductoID != nil && x.ProductoID != *f.ProductoID {
			continue
		}
		if f.VentaID != nil && (x.VentaID == nil || *x.VentaID != *f.VentaID) {
			continue
		}
		if f.Tipo != "" && x.Tipo != f.Tipo {
			continue
		}
		out = append(out, x)
	}
	return out, int64(len(out)), nil
}

func (r *stubStockRepo) entradas() []model.MovimientoStock {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, x := range r.movs {
		if x.Tipo == model.StockEntrada {
			out = append(out, x)
		}
	}
	return out
}

var _ repository.MovimientoStockRepository = (*stubStockRepo)(nil)

// stubCierres is a fixed VerificadorCierre.
type stubCierres struct {
	cerrada  bool
	err      error
	llamadas int
}

func (s *stubCierres) ExisteParaFecha(_ context.Context, _ string, _ *uuid.UUID) (bool, error) {
	s.llamadas++
	return s.cerrada, s.err
}

// stubCola captures queued credits.
type stubCola struct {
	jobs []worker.CreditoJob
	err  error
}

func (c *stubCola) EncolarCredito(_ context.Context, job worker.CreditoJob) error {
	if c.err != nil {
		return c.err
	}
	c.jobs = append(c.jobs, job)
	return nil
}
