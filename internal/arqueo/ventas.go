// Package arqueo holds the pure computation of a till reconciliation: sales
// aggregation, the cash movement net, expected/difference vectors, the rule
// validator and the per-date state machine. Nothing here performs I/O.
package arqueo

import (
	"sort"
	"time"

	"cajapos/internal/model"
)

// LayoutFecha is the calendar-day key format used across caja (YYYY-MM-DD).
const LayoutFecha = "2006-01-02"

// FechaDe returns the calendar day of t in loc.
func FechaDe(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LayoutFecha)
}

// ValidarFecha reports whether s is a YYYY-MM-DD day.
func ValidarFecha(s string) bool {
	_, err := time.Parse(LayoutFecha, s)
	return err == nil
}

// RangoDia returns [inicio, fin) of the calendar day fecha in loc.
func RangoDia(fecha string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	inicio, err := time.ParseInLocation(LayoutFecha, fecha, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return inicio, inicio.AddDate(0, 0, 1), nil
}

// AgregarVentas buckets the shift-scoped, non-void sales of fecha by payment
// method. A sale counts iff it is not anulada, its local date is fecha and it
// was made at or after the shift started: a new shift reconciles from zero even
// on the same calendar day.
//
// Unknown payment methods are bucketed as Efectivo. Their raw values are
// returned (sorted, distinct) so the caller can report the leniency.
func AgregarVentas(ventas []model.Venta, turno model.Turno, fecha string, loc *time.Location) (model.Vector, []string) {
	porMetodo := model.NuevoVector()
	desconocidos := map[string]struct{}{}

	for _, v := range ventas {
		if v.Anulada() {
			continue
		}
		if FechaDe(v.CreatedAt, loc) != fecha {
			continue
		}
		if v.CreatedAt.Before(turno.IniciadoEn) {
			continue
		}
		metodo, ok := model.ParseMetodoPago(v.MetodoPago)
		if !ok {
			desconocidos[v.MetodoPago] = struct{}{}
		}
		porMetodo[metodo] = porMetodo[metodo].Add(v.Total)
	}

	out := make([]string, 0, len(desconocidos))
	for raw := range desconocidos {
		out = append(out, raw)
	}
	sort.Strings(out)
	return porMetodo, out
}
