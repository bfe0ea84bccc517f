package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cajapos/internal/dto"
	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entornoAnulacion struct {
	svc     AnulacionService
	ventas  *stubVentaRepo
	stock   *stubStockRepo
	cierres *stubCierres
	cola    *stubCola
}

func nuevoEntornoAnulacion() *entornoAnulacion {
	e := &entornoAnulacion{
		ventas:  newStubVentaRepo(),
		stock:   newStubStockRepo(),
		cierres: &stubCierres{},
		cola:    &stubCola{},
	}
	guard := NewPersistenceGuard(time.Second, 100, time.Minute, nil)
	inv := NewInventarioService(e.stock, guard)
	e.svc = NewAnulacionService(e.ventas, e.cierres, inv, e.cola, guard, nil, zonaPrueba)
	return e
}

// ventaConItems stores a completed sale with one line per product.
func (e *entornoAnulacion) ventaConItems(t *testing.T, productos ...uuid.UUID) *model.Venta {
	t.Helper()
	v := &model.Venta{
		CajeroID:   uuid.New(),
		MetodoPago: "efectivo",
		Total:      money.FromInt(10_000),
		Estado:     model.VentaCompletada,
		CreatedAt:  enZona(10, 0),
	}
	for i, p := range productos {
		v.Items = append(v.Items, model.VentaItem{ProductoID: p, Cantidad: i + 1, PrecioUnitario: money.FromInt(1_000)})
	}
	require.NoError(t, e.ventas.Create(context.Background(), v))
	return v
}

func anular(token string) dto.AnularVentaRequest {
	return dto.AnularVentaRequest{Motivo: "cliente desistió", TokenConfirmacion: token}
}

func TestAnular_SinTokenEsValidacion(t *testing.T) {
	e := nuevoEntornoAnulacion()
	v := e.ventaConItems(t, uuid.New())

	_, err := e.svc.AnularVenta(context.Background(), v.ID, anular("  "))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, e.cierres.llamadas)
	assert.Empty(t, e.stock.entradas())
}

func TestAnular_Exito(t *testing.T) {
	e := nuevoEntornoAnulacion()
	p1, p2 := uuid.New(), uuid.New()
	v := e.ventaConItems(t, p1, p2)

	resp, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, model.VentaAnulada, resp.Estado)
	assert.Equal(t, 2, resp.Creditos)
	assert.Zero(t, resp.Pendiente)

	entradas := e.stock.entradas()
	require.Len(t, entradas, 2)
	assert.Equal(t, 1, entradas[0].Cantidad)
	assert.Equal(t, 2, entradas[1].Cantidad)
	assert.True(t, strings.Contains(entradas[0].Nota, "tok-1"))
	assert.True(t, strings.Contains(entradas[0].Nota, "cliente desistió"))

	got, _ := e.ventas.FindByID(context.Background(), v.ID)
	assert.True(t, got.Anulada())
	require.NotNil(t, got.MotivoAnulacion)
	assert.Equal(t, "cliente desistió", *got.MotivoAnulacion)
}

func TestAnular_YaAnulada(t *testing.T) {
	e := nuevoEntornoAnulacion()
	v := e.ventaConItems(t, uuid.New())
	_, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	require.NoError(t, err)

	_, err = e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	assert.ErrorIs(t, err, ErrVentaYaAnulada)
	assert.Len(t, e.stock.entradas(), 1)
}

func TestAnular_VentaInexistente(t *testing.T) {
	e := nuevoEntornoAnulacion()
	_, err := e.svc.AnularVenta(context.Background(), uuid.New(), anular("tok"))
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

// A finalized arqueo on the sale's date blocks the void: no credit is issued
// and the sale stays completada.
func TestAnular_FechaCerradaBloquea(t *testing.T) {
	e := nuevoEntornoAnulacion()
	e.cierres.cerrada = true
	v := e.ventaConItems(t, uuid.New(), uuid.New())

	_, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	var le *ReconciliationLockedError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, fechaPrueba, le.Fecha)
	require.NotNil(t, le.CajeroID)
	assert.Equal(t, v.CajeroID, *le.CajeroID)

	assert.Empty(t, e.stock.entradas())
	got, _ := e.ventas.FindByID(context.Background(), v.ID)
	assert.Equal(t, model.VentaCompletada, got.Estado)
}

func TestAnular_CierreDesconocidoPropagaError(t *testing.T) {
	e := nuevoEntornoAnulacion()
	e.cierres.err = &PersistenceUnavailableError{Op: "arqueo.existe", Err: errors.New("timeout")}
	v := e.ventaConItems(t, uuid.New())

	_, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	var pe *PersistenceUnavailableError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, e.stock.entradas())
	got, _ := e.ventas.FindByID(context.Background(), v.ID)
	assert.Equal(t, model.VentaCompletada, got.Estado)
}

// One failing credit does not stop the others nor the void; it is queued.
func TestAnular_CreditoFallidoSeEncola(t *testing.T) {
	e := nuevoEntornoAnulacion()
	ok1, malo, ok2 := uuid.New(), uuid.New(), uuid.New()
	e.stock.fallos[malo] = errors.New("disk full")
	v := e.ventaConItems(t, ok1, malo, ok2)

	resp, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Creditos)
	assert.Equal(t, 1, resp.Pendiente)
	assert.Len(t, e.stock.entradas(), 2)

	require.Len(t, e.cola.jobs, 1)
	job := e.cola.jobs[0]
	assert.Equal(t, v.ID, job.VentaID)
	assert.Equal(t, malo, job.ProductoID)
	assert.Equal(t, 2, job.Cantidad)

	got, _ := e.ventas.FindByID(context.Background(), v.ID)
	assert.True(t, got.Anulada())
}

// Replaying a void after a crash between credits and the state change does
// not double-credit.
func TestAnular_CreditosIdempotentes(t *testing.T) {
	e := nuevoEntornoAnulacion()
	p := uuid.New()
	v := e.ventaConItems(t, p)

	creado, err := NewInventarioService(e.stock, NewPersistenceGuard(time.Second, 100, time.Minute, nil)).
		AcreditarAnulacion(context.Background(), v.ID, p, 1, "parcial")
	require.NoError(t, err)
	require.True(t, creado)

	resp, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	require.NoError(t, err)
	assert.Zero(t, resp.Creditos)
	assert.Equal(t, 1, resp.Omitidos)
	assert.Len(t, e.stock.entradas(), 1)
}

// Two lines of the same product return their summed quantity to stock.
func TestAnular_LineasDelMismoProductoSeSuman(t *testing.T) {
	e := nuevoEntornoAnulacion()
	p, otro := uuid.New(), uuid.New()
	v := e.ventaConItems(t, p, otro, p) // quantities 1, 2, 3

	resp, err := e.svc.AnularVenta(context.Background(), v.ID, anular("tok"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Creditos)
	assert.Zero(t, resp.Omitidos)

	stock, err := e.stock.Stock(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)

	entradas := e.stock.entradas()
	require.Len(t, entradas, 2)
	assert.Equal(t, p, entradas[0].ProductoID)
	assert.Equal(t, 4, entradas[0].Cantidad)
	assert.Equal(t, otro, entradas[1].ProductoID)
	assert.Equal(t, 2, entradas[1].Cantidad)
}

func TestPorProducto(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := porProducto([]model.VentaItem{
		{ProductoID: a, Cantidad: 1},
		{ProductoID: b, Cantidad: 5},
		{ProductoID: a, Cantidad: 2},
	})
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ProductoID)
	assert.Equal(t, 3, got[0].Cantidad)
	assert.Equal(t, b, got[1].ProductoID)
	assert.Equal(t, 5, got[1].Cantidad)
}

// ── Void guard over the real arqueo service ──────────────────────────────────

type entornoCierre struct {
	*entornoArqueo
	anul  AnulacionService
	stock *stubStockRepo
}

func nuevoEntornoCierre(t *testing.T) *entornoCierre {
	t.Helper()
	e := &entornoCierre{entornoArqueo: nuevoEntornoArqueo(t), stock: newStubStockRepo()}
	e.conectar()
	return e
}

// conectar wires the void service to the current arqueo service; call it
// again after reiniciar.
func (e *entornoCierre) conectar() {
	guard := NewPersistenceGuard(time.Second, 100, time.Minute, nil)
	inv := NewInventarioService(e.stock, guard)
	e.anul = NewAnulacionService(e.ventas, e.svc, inv, &stubCola{}, guard, nil, zonaPrueba)
}

func (e *entornoCierre) ventaConProducto(t *testing.T) *model.Venta {
	t.Helper()
	v := &model.Venta{
		CajeroID:   e.turno.CajeroID,
		TurnoID:    &e.turno.ID,
		MetodoPago: "efectivo",
		Total:      money.FromInt(50_000),
		Estado:     model.VentaCompletada,
		CreatedAt:  enZona(10, 0),
		Items:      []model.VentaItem{{ProductoID: uuid.New(), Cantidad: 2, PrecioUnitario: money.FromInt(25_000)}},
	}
	require.NoError(t, e.ventas.Create(context.Background(), v))
	return v
}

func (e *entornoCierre) finalizar(t *testing.T) *model.Arqueo {
	t.Helper()
	a, _, err := e.svc.Finalizar(context.Background(), e.request(map[string]int64{"efectivo": 149_000}))
	require.NoError(t, err)
	return a
}

func (e *entornoCierre) requireBloqueada(t *testing.T, v *model.Venta) {
	t.Helper()
	_, err := e.anul.AnularVenta(context.Background(), v.ID, anular("tok"))
	var le *ReconciliationLockedError
	require.ErrorAs(t, err, &le)
	assert.Empty(t, e.stock.entradas())
	got, _ := e.ventas.FindByID(context.Background(), v.ID)
	assert.Equal(t, model.VentaCompletada, got.Estado)
}

func TestCierre_FinalizarBloqueaYEliminarLibera(t *testing.T) {
	e := nuevoEntornoCierre(t)
	v := e.ventaConProducto(t)
	a := e.finalizar(t)

	e.requireBloqueada(t, v)

	require.NoError(t, e.svc.Eliminar(context.Background(), a.ID))
	resp, err := e.anul.AnularVenta(context.Background(), v.ID, anular("tok"))
	require.NoError(t, err)
	assert.Equal(t, model.VentaAnulada, resp.Estado)
	assert.Equal(t, 1, resp.Creditos)
	require.Len(t, e.stock.entradas(), 1)
	assert.Equal(t, 2, e.stock.entradas()[0].Cantidad)
}

func TestCierre_CaidaDeLaBaseRespondeDesdeElBorrador(t *testing.T) {
	e := nuevoEntornoCierre(t)
	v := e.ventaConProducto(t)
	e.finalizar(t)

	e.arqueos.fallo = errors.New("connection refused")
	e.requireBloqueada(t, v)
}

func TestCierre_CaidaTrasPrevisualizarOtroTurno(t *testing.T) {
	e := nuevoEntornoCierre(t)
	v := e.ventaConProducto(t)
	e.finalizar(t)

	req := e.request(map[string]int64{"efectivo": 10_000})
	req.TurnoID = e.otroTurno(t).ID.String()
	_, err := e.svc.Previsualizar(context.Background(), req)
	require.NoError(t, err)

	e.arqueos.fallo = errors.New("connection refused")
	e.requireBloqueada(t, v)
}

func TestCierre_CaidaTrasReinicioYPrevisualizar(t *testing.T) {
	e := nuevoEntornoCierre(t)
	v := e.ventaConProducto(t)
	e.finalizar(t)

	e.reiniciar()
	e.conectar()
	_, err := e.svc.Previsualizar(context.Background(), e.request(map[string]int64{"efectivo": 149_000}))
	require.NoError(t, err)

	e.arqueos.fallo = errors.New("connection refused")
	e.requireBloqueada(t, v)
}

// Without a draft an outage leaves the answer unknown and the void is refused.
func TestCierre_CaidaSinBorradorRechaza(t *testing.T) {
	e := nuevoEntornoCierre(t)
	v := e.ventaConProducto(t)

	e.arqueos.fallo = errors.New("connection refused")
	_, err := e.anul.AnularVenta(context.Background(), v.ID, anular("tok"))
	var pe *PersistenceUnavailableError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, e.stock.entradas())
}
