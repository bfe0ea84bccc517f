package arqueo

import (
	"fmt"
	"strings"
	"time"

	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Messages the rules produce. Method-specific rules append the method name.
const (
	MsgValorNegativo     = "Valor negativo"
	MsgDesvioExcesivo    = "Desviación excesiva"
	MsgEfectivoExcesivo  = "Efectivo en caja inusualmente alto"
	MsgCajeroVacio       = "Debe indicar el cajero"
	MsgFechaVacia        = "Debe indicar la fecha"
	MsgSinValores        = "Todos los valores contados están en cero"
	MsgDiferenciaTotal   = "Diferencia total excede el máximo permitido"
	MsgFueraDeHorario    = "Arqueo fuera del horario habitual"
	MsgSaltoHistorico    = "Total contado muy distinto al último arqueo del cajero"
	MsgCoincidenciaExact = "Todos los métodos coinciden exactamente; verifique el conteo"
)

// Reglas are the thresholds the validator applies.
type Reglas struct {
	DesvioMetodo    money.Money     // absolute per-method deviation
	DesvioRelativo  decimal.Decimal // fraction of expected, per method
	DiferenciaTotal money.Money     // |total difference| that blocks
	SaltoHistorico  decimal.Decimal // fraction of the previous total
	HoraApertura    int             // first normal hour (inclusive)
	HoraCierre      int             // last normal hour (inclusive)
}

func ReglasPorDefecto() Reglas {
	return Reglas{
		DesvioMetodo:    money.FromInt(50_000),
		DesvioRelativo:  decimal.RequireFromString("0.10"),
		DiferenciaTotal: money.FromInt(100_000),
		SaltoHistorico:  decimal.RequireFromString("0.50"),
		HoraApertura:    6,
		HoraCierre:      23,
	}
}

// Contexto is everything besides the two vectors that the rules look at.
type Contexto struct {
	CajeroID uuid.UUID
	Fecha    string
	// Ahora is the local time of the evaluation.
	Ahora time.Time
	// Previo is the cashier's most recent arqueo, if any.
	Previo *model.Arqueo
}

// Resultado is the outcome of one validation. Errores block finalize;
// Advertencias require explicit confirmation.
type Resultado struct {
	Errores      []string `json:"errores"`
	Advertencias []string `json:"advertencias"`
}

func (r Resultado) Valido() bool { return len(r.Errores) == 0 }

func (r Resultado) RequiereConfirmacion() bool { return len(r.Advertencias) > 0 }

type regla func(contado, esperado model.Vector, dif Diferencias, ctx Contexto, rg Reglas, r *Resultado)

var reglas = []regla{
	reglaValoresNegativos,
	reglaDesvioPorMetodo,
	reglaTopeEfectivo,
	reglaCompletitud,
	reglaDiferenciaTotal,
	reglaHorario,
	reglaSaltoHistorico,
	reglaCoincidenciaPerfecta,
}

// Validar runs every rule and merges their output. It is pure: the same
// inputs always yield the same messages in the same order.
func Validar(contado, esperado model.Vector, ctx Contexto, rg Reglas) Resultado {
	r := Resultado{Errores: []string{}, Advertencias: []string{}}
	dif := CalcularDiferencias(esperado, contado)
	for _, fn := range reglas {
		fn(contado, esperado, dif, ctx, rg, &r)
	}
	return r
}

func reglaValoresNegativos(contado, _ model.Vector, _ Diferencias, _ Contexto, _ Reglas, r *Resultado) {
	for _, m := range model.MetodosPago {
		if contado.Get(m).IsNegative() {
			r.Errores = append(r.Errores, fmt.Sprintf("%s en %s", MsgValorNegativo, m))
		}
	}
}

// Both conditions are required: a large absolute gap on a large expectation,
// or a large relative gap on a small one, is normal variance.
func reglaDesvioPorMetodo(contado, esperado model.Vector, dif Diferencias, _ Contexto, rg Reglas, r *Resultado) {
	for _, m := range model.MetodosPago {
		if !m.Diferenciable() {
			continue
		}
		desvio := dif.PorMetodo.Get(m).Abs()
		if !desvio.GreaterThan(rg.DesvioMetodo) {
			continue
		}
		e := esperado.Get(m).Abs()
		relativo := decimal.NewFromInt(1)
		if !e.IsZero() {
			relativo = desvio.Ratio(e)
		}
		if relativo.GreaterThan(rg.DesvioRelativo) {
			r.Advertencias = append(r.Advertencias, fmt.Sprintf("%s en %s: %s (%s%%)",
				MsgDesvioExcesivo, m, desvio.Format(), relativo.Shift(2).StringFixed(1)))
		}
	}
}

func reglaTopeEfectivo(contado, esperado model.Vector, _ Diferencias, _ Contexto, _ Reglas, r *Resultado) {
	e := esperado.Get(model.Efectivo)
	if e.IsPositive() && contado.Get(model.Efectivo).GreaterThan(e.MulInt(2)) {
		r.Advertencias = append(r.Advertencias, MsgEfectivoExcesivo)
	}
}

func reglaCompletitud(contado, _ model.Vector, _ Diferencias, ctx Contexto, _ Reglas, r *Resultado) {
	if ctx.CajeroID == uuid.Nil {
		r.Errores = append(r.Errores, MsgCajeroVacio)
	}
	if strings.TrimSpace(ctx.Fecha) == "" {
		r.Errores = append(r.Errores, MsgFechaVacia)
	}
	if contado.TodoCero() {
		r.Errores = append(r.Errores, MsgSinValores)
	}
}

func reglaDiferenciaTotal(_, _ model.Vector, dif Diferencias, _ Contexto, rg Reglas, r *Resultado) {
	if dif.Total.Abs().GreaterThan(rg.DiferenciaTotal) {
		r.Errores = append(r.Errores, fmt.Sprintf("%s: %s", MsgDiferenciaTotal, dif.Total.Format()))
	}
}

func reglaHorario(_, _ model.Vector, _ Diferencias, ctx Contexto, rg Reglas, r *Resultado) {
	if ctx.Ahora.IsZero() {
		return
	}
	h := ctx.Ahora.Hour()
	if h < rg.HoraApertura || h > rg.HoraCierre {
		r.Advertencias = append(r.Advertencias, MsgFueraDeHorario)
	}
}

func reglaSaltoHistorico(_, _ model.Vector, dif Diferencias, ctx Contexto, rg Reglas, r *Resultado) {
	if ctx.Previo == nil || !ctx.Previo.TotalContado.IsPositive() {
		return
	}
	salto := dif.TotalContado.Sub(ctx.Previo.TotalContado).Abs().Ratio(ctx.Previo.TotalContado)
	if salto.GreaterThan(rg.SaltoHistorico) {
		r.Advertencias = append(r.Advertencias, fmt.Sprintf("%s (%s%%)", MsgSaltoHistorico, salto.Shift(2).StringFixed(1)))
	}
}

// An exact zero across every method at once is unlikely for an independent
// count and usually means the expected values were copied into the count.
func reglaCoincidenciaPerfecta(contado, _ model.Vector, dif Diferencias, _ Contexto, _ Reglas, r *Resultado) {
	if !contado.Get(model.Efectivo).IsPositive() {
		return
	}
	for _, d := range dif.PorMetodo {
		if !d.IsZero() {
			return
		}
	}
	r.Advertencias = append(r.Advertencias, MsgCoincidenciaExact)
}
