package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/borrador"
	"cajapos/internal/dto"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/money"
	"cajapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ArqueoService computes, validates and records till reconciliations, and
// answers whether a date is closed.
type ArqueoService interface {
	Previsualizar(ctx context.Context, req dto.ArqueoRequest) (*dto.ArqueoPreview, error)
	Finalizar(ctx context.Context, req dto.ArqueoRequest) (*model.Arqueo, arqueo.Resultado, error)
	ConsultarRango(ctx context.Context, desde, hasta string, cajeroID *uuid.UUID) ([]model.Arqueo, error)
	ExisteParaFecha(ctx context.Context, fecha string, cajeroID *uuid.UUID) (bool, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
}

// ArqueoConfig holds the knobs of ArqueoService.
type ArqueoConfig struct {
	Loc            *time.Location
	Reglas         arqueo.Reglas
	ModuloBorrador string
}

type arqueoService struct {
	arqueos    repository.ArqueoRepository
	caja       repository.CajaRepository
	ventas     repository.VentaRepository
	borradores borrador.Store
	tablero    *arqueo.Tablero
	guard      *infra.Guard
	metrics    *infra.Metrics
	cfg        ArqueoConfig
	ahora      func() time.Time
}

func NewArqueoService(
	arqueos repository.ArqueoRepository,
	caja repository.CajaRepository,
	ventas repository.VentaRepository,
	borradores borrador.Store,
	guard *infra.Guard,
	m *infra.Metrics,
	cfg ArqueoConfig,
) ArqueoService {
	if cfg.Loc == nil {
		cfg.Loc = time.Local
	}
	if cfg.ModuloBorrador == "" {
		cfg.ModuloBorrador = "caja"
	}
	return &arqueoService{
		arqueos:    arqueos,
		caja:       caja,
		ventas:     ventas,
		borradores: borradores,
		tablero:    arqueo.NewTablero(),
		guard:      guard,
		metrics:    m,
		cfg:        cfg,
		ahora:      time.Now,
	}
}

// calculo is one full evaluation of a count against the system position.
type calculo struct {
	clave        arqueo.ClaveFecha
	turno        *model.Turno
	ventas       model.Vector
	desconocidos []string
	neto         money.Money
	esperado     model.Vector
	contado      model.Vector
	dif          arqueo.Diferencias
	res          arqueo.Resultado
}

// ── Previsualizar ─────────────────────────────────────────────────────────────

func (s *arqueoService) Previsualizar(ctx context.Context, req dto.ArqueoRequest) (*dto.ArqueoPreview, error) {
	c, err := s.calcular(ctx, req)
	if err != nil {
		return nil, err
	}

	estado := s.tablero.Estado(c.clave)
	s.guardarBorrador(ctx, c, estado, nil, req.Observaciones)

	return &dto.ArqueoPreview{
		Fecha:               c.clave.Fecha,
		CajeroID:            c.turno.CajeroID.String(),
		TurnoID:             c.turno.ID.String(),
		Base:                c.turno.Base,
		Ventas:              c.ventas,
		NetoMovimientos:     c.neto,
		Esperado:            c.esperado,
		Contado:             c.contado,
		Diferencias:         c.dif,
		Errores:             c.res.Errores,
		Advertencias:        c.res.Advertencias,
		MetodosDesconocidos: c.desconocidos,
		Estado:              string(estado),
	}, nil
}

// ── Finalizar ─────────────────────────────────────────────────────────────────
// Errors block; warnings need Confirmado. The row is inserted once and never
// updated.

func (s *arqueoService) Finalizar(ctx context.Context, req dto.ArqueoRequest) (*model.Arqueo, arqueo.Resultado, error) {
	c, err := s.calcular(ctx, req)
	if err != nil {
		return nil, arqueo.Resultado{}, err
	}
	res := c.res

	if !res.Valido() {
		s.metrics.ArqueoFinalizado("rechazado")
		return nil, res, &ValidationError{Errores: res.Errores, Advertencias: res.Advertencias}
	}
	if res.RequiereConfirmacion() && !req.Confirmado {
		s.metrics.ArqueoFinalizado("confirmacion")
		return nil, res, &ConfirmacionRequeridaError{Advertencias: res.Advertencias}
	}

	if s.tablero.Estado(c.clave) == arqueo.Finalizado {
		s.metrics.ArqueoFinalizado("duplicado")
		return nil, res, ErrArqueoDuplicado
	}
	err = persistir(ctx, s.guard, "arqueo.buscar", func(ctx context.Context) error {
		_, err := s.arqueos.FindPorFechaTurno(ctx, c.clave.Fecha, c.clave.TurnoID)
		return err
	})
	switch {
	case err == nil:
		s.tablero.Fijar(c.clave, arqueo.Finalizado)
		s.metrics.ArqueoFinalizado("duplicado")
		return nil, res, ErrArqueoDuplicado
	case !errors.Is(err, ErrNoEncontrado):
		return nil, res, err
	}

	registro := &model.Arqueo{
		Fecha:           c.clave.Fecha,
		CajeroID:        c.turno.CajeroID,
		TurnoID:         c.turno.ID,
		Banco:           req.Banco,
		Esperado:        c.esperado,
		Contado:         c.contado,
		TotalEsperado:   c.dif.TotalEsperado,
		TotalContado:    c.dif.TotalContado,
		TotalDiferencia: c.dif.Total,
		Observaciones:   req.Observaciones,
		Estado:          model.ArqueoCompletado,
	}
	err = persistir(ctx, s.guard, "arqueo.crear", func(ctx context.Context) error {
		return s.arqueos.Create(ctx, registro)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.tablero.Fijar(c.clave, arqueo.Finalizado)
		s.metrics.ArqueoFinalizado("duplicado")
		return nil, res, ErrArqueoDuplicado
	}
	if err != nil {
		return nil, res, err
	}

	if _, err := s.tablero.Aplicar(c.clave, arqueo.Finalizar); err != nil {
		s.tablero.Fijar(c.clave, arqueo.Finalizado)
	}
	s.guardarBorrador(ctx, c, arqueo.Finalizado, &registro.ID, req.Observaciones)
	s.metrics.ArqueoFinalizado("ok")

	log.Info().
		Str("arqueo_id", registro.ID.String()).
		Str("fecha", registro.Fecha).
		Str("cajero_id", registro.CajeroID.String()).
		Str("diferencia", registro.TotalDiferencia.String()).
		Int("advertencias", len(res.Advertencias)).
		Msg("arqueo finalizado")
	return registro, res, nil
}

// ── ConsultarRango ────────────────────────────────────────────────────────────

func (s *arqueoService) ConsultarRango(ctx context.Context, desde, hasta string, cajeroID *uuid.UUID) ([]model.Arqueo, error) {
	if !arqueo.ValidarFecha(desde) || !arqueo.ValidarFecha(hasta) {
		return nil, &ValidationError{Errores: []string{"Rango de fechas inválido"}}
	}
	if desde > hasta {
		return nil, &ValidationError{Errores: []string{"La fecha inicial es posterior a la final"}}
	}
	var out []model.Arqueo
	err := persistir(ctx, s.guard, "arqueo.rango", func(ctx context.Context) error {
		var err error
		out, err = s.arqueos.ListRango(ctx, desde, hasta, cajeroID)
		return err
	})
	return out, err
}

// ── ExisteParaFecha ───────────────────────────────────────────────────────────
// When the audit store is down the draft store answers, but only if it holds
// a draft for the same cashier. Without one the outage is returned: an
// unknown answer must not unlock a void.

func (s *arqueoService) ExisteParaFecha(ctx context.Context, fecha string, cajeroID *uuid.UUID) (bool, error) {
	var existe bool
	err := persistir(ctx, s.guard, "arqueo.existe", func(ctx context.Context) error {
		var err error
		existe, err = s.arqueos.ExistePorFecha(ctx, fecha, cajeroID)
		return err
	})
	if err == nil {
		return existe, nil
	}

	var pe *PersistenceUnavailableError
	if !errors.As(err, &pe) || s.borradores == nil {
		return false, err
	}
	b, ok, derr := s.borradores.Obtener(ctx, borrador.Clave{Modulo: s.cfg.ModuloBorrador, Fecha: fecha})
	if derr != nil || !ok {
		return false, err
	}
	if cajeroID != nil && b.CajeroID != *cajeroID {
		return false, err
	}

	log.Warn().
		Err(pe.Err).
		Str("fecha", fecha).
		Bool("finalizado", b.Finalizado()).
		Msg("arqueo store unavailable, answering from draft")
	return b.Finalizado(), nil
}

// ── Eliminar ──────────────────────────────────────────────────────────────────
// The out-of-band removal that unlocks voids for the date.

func (s *arqueoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	var a *model.Arqueo
	if err := persistir(ctx, s.guard, "arqueo.obtener", func(ctx context.Context) error {
		var err error
		a, err = s.arqueos.FindByID(ctx, id)
		return err
	}); err != nil {
		return err
	}

	if err := persistir(ctx, s.guard, "arqueo.eliminar", func(ctx context.Context) error {
		_, err := s.arqueos.Delete(ctx, id)
		return err
	}); err != nil {
		return err
	}

	clave := arqueo.ClaveFecha{Fecha: a.Fecha, CajeroID: a.CajeroID, TurnoID: a.TurnoID}
	if _, err := s.tablero.Aplicar(clave, arqueo.Reabrir); err != nil {
		s.tablero.Fijar(clave, arqueo.SinCargar)
	}

	// Another shift of the same cashier may still close the date.
	var sigueCerrada bool
	if err := persistir(ctx, s.guard, "arqueo.existe", func(ctx context.Context) error {
		var err error
		sigueCerrada, err = s.arqueos.ExistePorFecha(ctx, a.Fecha, &a.CajeroID)
		return err
	}); err != nil {
		log.Warn().Err(err).Str("fecha", a.Fecha).Msg("could not recheck date, draft left as is")
		sigueCerrada = true
	}

	if s.borradores != nil && !sigueCerrada {
		k := borrador.Clave{Modulo: s.cfg.ModuloBorrador, Fecha: a.Fecha}
		b, ok, err := s.borradores.Obtener(ctx, k)
		if err == nil && ok && b.CajeroID == a.CajeroID {
			b.Estado = arqueo.SinCargar
			b.ArqueoID = nil
			b.ActualizadoEn = s.ahora()
			if err := s.borradores.Guardar(ctx, k, *b); err != nil {
				log.Warn().Err(err).Str("clave", k.String()).Msg("failed to reset draft")
			}
		}
	}

	log.Info().
		Str("arqueo_id", id.String()).
		Str("fecha", a.Fecha).
		Str("cajero_id", a.CajeroID.String()).
		Msg("arqueo eliminado")
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *arqueoService) calcular(ctx context.Context, req dto.ArqueoRequest) (*calculo, error) {
	turnoID, err := uuid.Parse(req.TurnoID)
	if err != nil {
		return nil, &ValidationError{Errores: []string{"turno_id inválido"}}
	}
	if !arqueo.ValidarFecha(req.Fecha) {
		return nil, &ValidationError{Errores: []string{arqueo.MsgFechaVacia}}
	}
	contado, errs := parseContado(req.Contado)
	if len(errs) > 0 {
		return nil, &ValidationError{Errores: errs}
	}

	var turno *model.Turno
	if err := persistir(ctx, s.guard, "turno.obtener", func(ctx context.Context) error {
		var err error
		turno, err = s.caja.FindTurnoByID(ctx, turnoID)
		return err
	}); err != nil {
		return nil, err
	}

	if req.CajeroSolicitante != nil && *req.CajeroSolicitante != turno.CajeroID {
		return nil, ErrTurnoAjeno
	}

	c := &calculo{
		clave:   arqueo.ClaveFecha{Fecha: req.Fecha, CajeroID: turno.CajeroID, TurnoID: turno.ID},
		turno:   turno,
		contado: contado,
	}

	if err := s.sembrar(ctx, c.clave); err != nil {
		return nil, err
	}
	s.transicion(c.clave, arqueo.IniciarCarga)
	ventas, movs, previo, err := s.cargar(ctx, req.Fecha, turno)
	if err != nil {
		s.transicion(c.clave, arqueo.CargaFallida)
		return nil, err
	}
	s.transicion(c.clave, arqueo.CargaCompleta)

	c.ventas, c.desconocidos = arqueo.AgregarVentas(ventas, *turno, req.Fecha, s.cfg.Loc)
	if len(c.desconocidos) > 0 {
		log.Warn().
			Strs("metodos", c.desconocidos).
			Str("fecha", req.Fecha).
			Str("cajero_id", turno.CajeroID.String()).
			Msg("unknown payment methods counted as efectivo")
	}
	c.neto = arqueo.NetoMovimientos(movs, req.Fecha, &turno.CajeroID)
	c.esperado = arqueo.CalcularEsperado(c.ventas, turno.Base, c.neto)
	c.dif = arqueo.CalcularDiferencias(c.esperado, c.contado)
	c.res = arqueo.Validar(c.contado, c.esperado, arqueo.Contexto{
		CajeroID: turno.CajeroID,
		Fecha:    req.Fecha,
		Ahora:    s.ahora().In(s.cfg.Loc),
		Previo:   previo,
	}, s.cfg.Reglas)
	return c, nil
}

func (s *arqueoService) cargar(ctx context.Context, fecha string, turno *model.Turno) ([]model.Venta, []model.MovimientoCaja, *model.Arqueo, error) {
	desde, hasta, err := arqueo.RangoDia(fecha, s.cfg.Loc)
	if err != nil {
		return nil, nil, nil, &ValidationError{Errores: []string{arqueo.MsgFechaVacia}}
	}

	var (
		ventas []model.Venta
		movs   []model.MovimientoCaja
		previo *model.Arqueo
	)
	if err := persistir(ctx, s.guard, "ventas.rango", func(ctx context.Context) error {
		var err error
		ventas, err = s.ventas.ListRango(ctx, desde, hasta, &turno.CajeroID)
		return err
	}); err != nil {
		return nil, nil, nil, err
	}
	if err := persistir(ctx, s.guard, "movimiento.listar", func(ctx context.Context) error {
		var err error
		movs, err = s.caja.ListMovimientos(ctx, fecha, &turno.CajeroID)
		return err
	}); err != nil {
		return nil, nil, nil, err
	}
	if err := persistir(ctx, s.guard, "arqueo.previo", func(ctx context.Context) error {
		var err error
		previo, err = s.arqueos.UltimoAntesDe(ctx, fecha, turno.CajeroID)
		return err
	}); err != nil {
		return nil, nil, nil, err
	}
	return ventas, movs, previo, nil
}

// sembrar marks a scope the process has not seen yet as finalized when the
// audit store already holds its arqueo, e.g. after a restart.
func (s *arqueoService) sembrar(ctx context.Context, k arqueo.ClaveFecha) error {
	if s.tablero.Estado(k) != arqueo.SinCargar {
		return nil
	}
	err := persistir(ctx, s.guard, "arqueo.buscar", func(ctx context.Context) error {
		_, err := s.arqueos.FindPorFechaTurno(ctx, k.Fecha, k.TurnoID)
		return err
	})
	switch {
	case err == nil:
		s.tablero.Fijar(k, arqueo.Finalizado)
		return nil
	case errors.Is(err, ErrNoEncontrado):
		return nil
	default:
		return err
	}
}

// transicion advances the date scope unless it is already finalized. Illegal
// transitions (e.g. two overlapping loads) leave the state as is.
func (s *arqueoService) transicion(k arqueo.ClaveFecha, ev arqueo.Evento) {
	if s.tablero.Estado(k) == arqueo.Finalizado {
		return
	}
	if _, err := s.tablero.Aplicar(k, ev); err != nil {
		log.Debug().Err(err).Str("fecha", k.Fecha).Msg("date scope transition skipped")
	}
}

// guardarBorrador stores the draft of the date. Only Finalizar (arqueoID set)
// may replace a finalized draft.
func (s *arqueoService) guardarBorrador(ctx context.Context, c *calculo, estado arqueo.EstadoFecha, arqueoID *uuid.UUID, obs *string) {
	if s.borradores == nil {
		return
	}
	k := borrador.Clave{Modulo: s.cfg.ModuloBorrador, Fecha: c.clave.Fecha}
	if arqueoID == nil {
		previo, ok, err := s.borradores.Obtener(ctx, k)
		if err != nil {
			log.Warn().Err(err).Str("clave", k.String()).Msg("failed to read draft, not overwriting")
			return
		}
		if ok && previo.Finalizado() {
			log.Debug().Str("clave", k.String()).Str("turno_id", c.turno.ID.String()).
				Msg("finalized draft kept")
			return
		}
	}

	b := borrador.Borrador{
		Fecha:         c.clave.Fecha,
		CajeroID:      c.turno.CajeroID,
		TurnoID:       c.turno.ID,
		Contado:       c.contado,
		Estado:        estado,
		ArqueoID:      arqueoID,
		ActualizadoEn: s.ahora(),
	}
	if obs != nil {
		b.Observaciones = *obs
	}
	if err := s.borradores.Guardar(ctx, k, b); err != nil {
		log.Warn().Err(err).Str("clave", k.String()).Msg("failed to store draft")
	}
}

// parseContado maps the request keys onto payment methods. Aliases of the
// same method are added together; unknown keys are rejected.
func parseContado(raw map[string]money.Money) (model.Vector, []string) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contado := model.NuevoVector()
	var errs []string
	for _, k := range keys {
		m, ok := model.ParseMetodoPago(k)
		if !ok {
			errs = append(errs, "Método de pago desconocido: "+k)
			continue
		}
		contado[m] = contado[m].Add(raw[k])
	}
	return contado, errs
}
