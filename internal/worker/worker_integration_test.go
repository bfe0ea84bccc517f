//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cajapos/internal/arqueo"
	"cajapos/internal/borrador"
	"cajapos/internal/infra"
	"cajapos/internal/model"
	"cajapos/internal/money"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func redisDePrueba(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// A credit that keeps failing is retried maxIntentos times and then parked
// in the dead-letter queue.
func TestPool_ReintentaHastaDLQ(t *testing.T) {
	rdb := redisDePrueba(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acreditador := &fakeAcreditador{err: errors.New("db down")}
	pool := NewPool(rdb, acreditador, 2, infra.NewMetrics())

	job := CreditoJob{VentaID: uuid.New(), ProductoID: uuid.New(), Cantidad: 3, Nota: "Anulación"}
	require.NoError(t, NewDispatcher(rdb).EncolarCredito(ctx, job))

	pool.StartWorkerPool(ctx, 1)

	require.Eventually(t, func() bool {
		n, err := DLQLength(ctx, rdb, QueueCreditoInventario)
		return err == nil && n == 1
	}, 30*time.Second, 200*time.Millisecond)

	raw, err := rdb.LIndex(ctx, DLQPrefix+QueueCreditoInventario, 0).Result()
	require.NoError(t, err)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, JobCreditoInventario, entry.JobType)
	assert.Equal(t, 2, entry.Attempts)
	assert.Equal(t, "db down", entry.Reason)

	var back CreditoJob
	require.NoError(t, json.Unmarshal(entry.Payload, &back))
	assert.Equal(t, job, back)

	listadas, err := ListDLQ(ctx, rdb, QueueCreditoInventario, 10)
	require.NoError(t, err)
	require.Len(t, listadas, 1)
	got, ok := listadas[0].Credito()
	require.True(t, ok)
	assert.Equal(t, job, got)
}

func TestRedisStore_TTLyCiclo(t *testing.T) {
	rdb := redisDePrueba(t)
	ctx := context.Background()
	s := borrador.NewRedisStore(rdb, time.Hour)
	clave := borrador.Clave{Modulo: "caja", Fecha: "2026-03-10"}

	arqueoID := uuid.New()
	require.NoError(t, s.Guardar(ctx, clave, borrador.Borrador{
		Fecha:    clave.Fecha,
		CajeroID: uuid.New(),
		Contado:  model.Vector{model.Efectivo: money.FromInt(1000)},
		Estado:   arqueo.Finalizado,
		ArqueoID: &arqueoID,
	}))

	ttl, err := rdb.TTL(ctx, clave.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	got, ok, err := s.Obtener(ctx, clave)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Finalizado())
	require.NotNil(t, got.ArqueoID)
	assert.Equal(t, arqueoID, *got.ArqueoID)

	require.NoError(t, s.Eliminar(ctx, clave))
	_, ok, err = s.Obtener(ctx, clave)
	require.NoError(t, err)
	assert.False(t, ok)
}
