package arqueo

import (
	"cajapos/internal/model"
	"cajapos/internal/money"
)

// CalcularEsperado builds the expected vector. Only cash carries the opening
// float and the net of manual movements; every other method expects exactly
// what was sold with it.
func CalcularEsperado(ventasPorMetodo model.Vector, base, netoMovimientos money.Money) model.Vector {
	esperado := model.NuevoVector()
	for _, m := range model.MetodosPago {
		esperado[m] = ventasPorMetodo.Get(m)
	}
	esperado[model.Efectivo] = esperado[model.Efectivo].Add(base).Add(netoMovimientos)
	return esperado
}

// Diferencias is the comparison of a counted vector against an expected one.
// PorMetodo has no Bono key.
type Diferencias struct {
	PorMetodo     model.Vector `json:"por_metodo"`
	TotalEsperado money.Money  `json:"total_esperado"`
	TotalContado  money.Money  `json:"total_contado"`
	Total         money.Money  `json:"total"`
}

// CalcularDiferencias returns counted - expected per differenced method and
// the totals over the same set, so Total == TotalContado - TotalEsperado ==
// sum(PorMetodo) always holds.
func CalcularDiferencias(esperado, contado model.Vector) Diferencias {
	d := Diferencias{
		PorMetodo:     make(model.Vector, len(model.MetodosPago)-1),
		TotalEsperado: money.Zero,
		TotalContado:  money.Zero,
		Total:         money.Zero,
	}
	for _, m := range model.MetodosPago {
		if !m.Diferenciable() {
			continue
		}
		e, c := esperado.Get(m), contado.Get(m)
		d.PorMetodo[m] = c.Sub(e)
		d.TotalEsperado = d.TotalEsperado.Add(e)
		d.TotalContado = d.TotalContado.Add(c)
		d.Total = d.Total.Add(c.Sub(e))
	}
	return d
}
