package arqueo

import (
	"testing"
	"time"

	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bogota = time.FixedZone("COT", -5*3600)
	hoy    = "2026-03-10"
)

func enHora(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, bogota)
}

func venta(metodo string, total int64, at time.Time) model.Venta {
	return model.Venta{
		ID:         uuid.New(),
		MetodoPago: metodo,
		Total:      money.FromInt(total),
		Estado:     model.VentaCompletada,
		CreatedAt:  at,
	}
}

func vector(valores map[model.MetodoPago]int64) model.Vector {
	v := model.NuevoVector()
	for m, x := range valores {
		v[m] = money.FromInt(x)
	}
	return v
}

// ── Aggregator ────────────────────────────────────────────────────────────────

func TestAgregarVentas_FiltraTurnoFechaYAnuladas(t *testing.T) {
	turno := model.Turno{IniciadoEn: enHora(8, 0)}
	anulada := venta("efectivo", 9999, enHora(9, 0))
	anulada.Estado = model.VentaAnulada

	ventas := []model.Venta{
		venta("efectivo", 1000, enHora(7, 59)),                  // before shift start
		venta("efectivo", 2000, enHora(8, 0)),                   // exactly at shift start
		venta("tarjeta", 3000, enHora(12, 0)),
		venta("efectivo", 4000, enHora(12, 0).AddDate(0, 0, 1)), // next day
		anulada,
	}

	got, desconocidos := AgregarVentas(ventas, turno, hoy, bogota)

	assert.Empty(t, desconocidos)
	assert.Equal(t, "2000.00", got[model.Efectivo].String())
	assert.Equal(t, "3000.00", got[model.Tarjeta].String())
	for _, m := range model.MetodosPago {
		_, ok := got[m]
		assert.True(t, ok, "falta la clave %s", m)
	}
}

func TestAgregarVentas_MetodoDesconocidoVaAEfectivo(t *testing.T) {
	turno := model.Turno{IniciadoEn: enHora(6, 0)}
	ventas := []model.Venta{
		venta("cheque", 500, enHora(9, 0)),
		venta("", 250, enHora(9, 5)),
		venta("Nequi", 700, enHora(9, 10)),
		venta("cheque", 100, enHora(9, 15)),
	}

	got, desconocidos := AgregarVentas(ventas, turno, hoy, bogota)

	assert.Equal(t, "850.00", got[model.Efectivo].String())
	assert.Equal(t, "700.00", got[model.Billetera].String())
	assert.Equal(t, []string{"", "cheque"}, desconocidos)
}

func TestAgregarVentas_FechaEnZonaLocal(t *testing.T) {
	// 03:00 UTC on the 11th is still the 10th in Bogotá.
	at := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	turno := model.Turno{IniciadoEn: enHora(6, 0)}

	got, _ := AgregarVentas([]model.Venta{venta("efectivo", 100, at)}, turno, hoy, bogota)
	assert.Equal(t, "100.00", got[model.Efectivo].String())
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func TestNetoMovimientos_EscenarioD(t *testing.T) {
	cajero := uuid.New()
	otro := uuid.New()
	movs := []model.MovimientoCaja{
		{Fecha: hoy, CajeroID: cajero, Tipo: model.MovimientoIngreso, Monto: money.FromInt(20000)},
		{Fecha: hoy, CajeroID: cajero, Tipo: model.MovimientoEgreso, Monto: money.FromInt(5000)},
		{Fecha: hoy, CajeroID: otro, Tipo: model.MovimientoIngreso, Monto: money.FromInt(70000)},
		{Fecha: "2026-03-09", CajeroID: cajero, Tipo: model.MovimientoIngreso, Monto: money.FromInt(1)},
	}

	assert.Equal(t, "15000.00", NetoMovimientos(movs, hoy, &cajero).String())
	assert.Equal(t, "85000.00", NetoMovimientos(movs, hoy, nil).String())

	esperado := CalcularEsperado(vector(map[model.MetodoPago]int64{model.Efectivo: 100000}), money.FromInt(50000), NetoMovimientos(movs, hoy, &cajero))
	assert.Equal(t, "165000.00", esperado[model.Efectivo].String())
}

func TestValidarMovimiento(t *testing.T) {
	ok := model.MovimientoCaja{Fecha: hoy, CajeroID: uuid.New(), Tipo: model.MovimientoIngreso, Monto: money.FromInt(10), Concepto: "Base"}
	require.NoError(t, ValidarMovimiento(ok))

	sinMonto := ok
	sinMonto.Monto = money.Zero
	sinConcepto := ok
	sinConcepto.Concepto = "  "
	negativo := ok
	negativo.Monto = money.FromInt(-5)

	for name, m := range map[string]model.MovimientoCaja{"cero": sinMonto, "concepto": sinConcepto, "negativo": negativo} {
		err := ValidarMovimiento(m)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, name)
		assert.NotEmpty(t, ve.Errores, name)
	}
}

// ── Calculator ────────────────────────────────────────────────────────────────

func TestCalcularEsperado_SoloEfectivoLlevaBaseYMovimientos(t *testing.T) {
	ventas := vector(map[model.MetodoPago]int64{model.Efectivo: 100, model.Tarjeta: 50, model.Bono: 30})
	got := CalcularEsperado(ventas, money.FromInt(1000), money.FromInt(-20))

	assert.Equal(t, "1080.00", got[model.Efectivo].String())
	assert.Equal(t, "50.00", got[model.Tarjeta].String())
	assert.Equal(t, "30.00", got[model.Bono].String())
}

func TestCalcularDiferencias_InvarianteYBonoExcluido(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 120000, model.Tarjeta: 50000, model.QR: 7000, model.Bono: 40000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 118500, model.Tarjeta: 50000, model.QR: 9000, model.Bono: 10000})

	d := CalcularDiferencias(esperado, contado)

	_, tieneBono := d.PorMetodo[model.Bono]
	assert.False(t, tieneBono)
	assert.Equal(t, "177000.00", d.TotalEsperado.String())
	assert.Equal(t, "177500.00", d.TotalContado.String())
	assert.True(t, d.Total.Equal(d.TotalContado.Sub(d.TotalEsperado)))

	suma := money.Zero
	for _, x := range d.PorMetodo {
		suma = suma.Add(x)
	}
	assert.True(t, d.Total.Equal(suma))
}

func TestCalcularDiferencias_Determinista(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 33333, model.Transferencia: 1, model.Billetera: 77})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 33000, model.Transferencia: 2, model.Consignacion: 5})

	first := CalcularDiferencias(esperado, contado)
	for i := 0; i < 50; i++ {
		again := CalcularDiferencias(esperado, contado)
		assert.Equal(t, first.Total.String(), again.Total.String())
		for m, x := range first.PorMetodo {
			assert.Equal(t, x.String(), again.PorMetodo[m].String())
		}
	}
}

// ── Validator ─────────────────────────────────────────────────────────────────

func ctxValido() Contexto {
	return Contexto{CajeroID: uuid.New(), Fecha: hoy, Ahora: enHora(18, 0)}
}

func TestEscenarioA_CoincidenciaPerfecta(t *testing.T) {
	turno := model.Turno{IniciadoEn: enHora(7, 0)}
	ventas := []model.Venta{venta("efectivo", 100000, enHora(9, 0)), venta("tarjeta", 50000, enHora(10, 0))}
	porMetodo, _ := AgregarVentas(ventas, turno, hoy, bogota)
	esperado := CalcularEsperado(porMetodo, money.Zero, money.Zero)
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 100000, model.Tarjeta: 50000})

	d := CalcularDiferencias(esperado, contado)
	r := Validar(contado, esperado, ctxValido(), ReglasPorDefecto())

	assert.True(t, d.Total.IsZero())
	assert.True(t, r.Valido())
	assert.Equal(t, []string{MsgCoincidenciaExact}, r.Advertencias)
}

func TestEscenarioB_EfectivoInusualmenteAlto(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 200000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 500000})

	r := Validar(contado, esperado, ctxValido(), ReglasPorDefecto())

	assert.Contains(t, r.Advertencias, MsgEfectivoExcesivo)
	// 300000 over is also above the gross threshold.
	assert.False(t, r.Valido())
}

func TestEscenarioC_ValorNegativo(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 0})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: -10, model.Tarjeta: 5})

	r := Validar(contado, esperado, ctxValido(), ReglasPorDefecto())

	require.False(t, r.Valido())
	assert.Contains(t, r.Errores, MsgValorNegativo+" en efectivo")
}

func TestDesvioPorMetodo_RequiereAmbasCondiciones(t *testing.T) {
	rg := ReglasPorDefecto()

	// 60000 over an expectation of 1,000,000 is 6%: tolerated.
	r := Validar(
		vector(map[model.MetodoPago]int64{model.Tarjeta: 1060000}),
		vector(map[model.MetodoPago]int64{model.Tarjeta: 1000000}),
		ctxValido(), rg)
	assert.Empty(t, r.Advertencias)

	// 40000 over 100000 is 40% but under the absolute threshold: tolerated.
	r = Validar(
		vector(map[model.MetodoPago]int64{model.Tarjeta: 140000}),
		vector(map[model.MetodoPago]int64{model.Tarjeta: 100000}),
		ctxValido(), rg)
	assert.Empty(t, r.Advertencias)

	// 60000 over 100000: both conditions hold.
	r = Validar(
		vector(map[model.MetodoPago]int64{model.Tarjeta: 160000}),
		vector(map[model.MetodoPago]int64{model.Tarjeta: 100000}),
		ctxValido(), rg)
	require.Len(t, r.Advertencias, 1)
	assert.Contains(t, r.Advertencias[0], MsgDesvioExcesivo+" en tarjeta")
}

func TestDesvioPorMetodo_BonoNoSeCompara(t *testing.T) {
	r := Validar(
		vector(map[model.MetodoPago]int64{model.Efectivo: 10, model.Bono: 900000}),
		vector(map[model.MetodoPago]int64{model.Efectivo: 10}),
		ctxValido(), ReglasPorDefecto())
	assert.True(t, r.Valido())
	for _, w := range r.Advertencias {
		assert.NotContains(t, w, MsgDesvioExcesivo)
	}
}

func TestCompletitud(t *testing.T) {
	r := Validar(model.NuevoVector(), model.NuevoVector(), Contexto{Ahora: enHora(12, 0)}, ReglasPorDefecto())
	assert.Contains(t, r.Errores, MsgCajeroVacio)
	assert.Contains(t, r.Errores, MsgFechaVacia)
	assert.Contains(t, r.Errores, MsgSinValores)
}

func TestDiferenciaTotalBloquea(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 300000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 199999})

	r := Validar(contado, esperado, ctxValido(), ReglasPorDefecto())
	require.False(t, r.Valido())
	assert.Contains(t, r.Errores[0], MsgDiferenciaTotal)

	contado[model.Efectivo] = money.FromInt(200000)
	r = Validar(contado, esperado, ctxValido(), ReglasPorDefecto())
	assert.True(t, r.Valido(), "exactly 100000 is allowed")
}

func TestFueraDeHorarioSoloAdvierte(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 1000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 900})
	ctx := ctxValido()
	ctx.Ahora = enHora(5, 30)

	r := Validar(contado, esperado, ctx, ReglasPorDefecto())
	assert.True(t, r.Valido())
	assert.Contains(t, r.Advertencias, MsgFueraDeHorario)

	ctx.Ahora = enHora(23, 30)
	r = Validar(contado, esperado, ctx, ReglasPorDefecto())
	assert.NotContains(t, r.Advertencias, MsgFueraDeHorario)
}

func TestSaltoHistorico(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 400000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 390000})
	ctx := ctxValido()
	ctx.Previo = &model.Arqueo{TotalContado: money.FromInt(200000)}

	r := Validar(contado, esperado, ctx, ReglasPorDefecto())
	require.Len(t, r.Advertencias, 1)
	assert.Contains(t, r.Advertencias[0], MsgSaltoHistorico)

	ctx.Previo.TotalContado = money.FromInt(300000)
	r = Validar(contado, esperado, ctx, ReglasPorDefecto())
	assert.Empty(t, r.Advertencias)
}

func TestValidar_OrdenEstable(t *testing.T) {
	esperado := vector(map[model.MetodoPago]int64{model.Efectivo: 100000, model.Tarjeta: 100000})
	contado := vector(map[model.MetodoPago]int64{model.Efectivo: 300000, model.Tarjeta: -1})
	ctx := ctxValido()
	ctx.Ahora = enHora(3, 0)

	first := Validar(contado, esperado, ctx, ReglasPorDefecto())
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Validar(contado, esperado, ctx, ReglasPorDefecto()))
	}
}

// ── State machine ─────────────────────────────────────────────────────────────

func TestEstadoFecha_Transiciones(t *testing.T) {
	tb := NewTablero()
	k := ClaveFecha{Fecha: hoy, CajeroID: uuid.New(), TurnoID: uuid.New()}

	assert.Equal(t, SinCargar, tb.Estado(k))
	_, err := tb.Aplicar(k, Finalizar)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	for _, ev := range []Evento{IniciarCarga, CargaCompleta, Finalizar} {
		_, err := tb.Aplicar(k, ev)
		require.NoError(t, err)
	}
	assert.Equal(t, Finalizado, tb.Estado(k))

	_, err = tb.Aplicar(k, IniciarCarga)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	e, err := tb.Aplicar(k, Reabrir)
	require.NoError(t, err)
	assert.Equal(t, SinCargar, e)
}

func TestEstadoFecha_CargaFallidaVuelveASinCargar(t *testing.T) {
	e, err := Cargando.Siguiente(CargaFallida)
	require.NoError(t, err)
	assert.Equal(t, SinCargar, e)
}
