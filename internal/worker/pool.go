package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cajapos/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCreditoInventario = "jobs:credito_inventario"
	JobCreditoInventario   = "credito_inventario"
	DefaultMaxIntentos     = 5
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// CreditoJob is an inventory credit that failed during a void.
type CreditoJob struct {
	VentaID    uuid.UUID `json:"venta_id"`
	ProductoID uuid.UUID `json:"producto_id"`
	Cantidad   int       `json:"cantidad"`
	Nota       string    `json:"nota"`
}

// Acreditador issues idempotent void credits; created is false when the
// credit already existed.
type Acreditador interface {
	AcreditarAnulacion(ctx context.Context, ventaID, productoID uuid.UUID, cantidad int, nota string) (created bool, err error)
}

// lista is the slice of the redis API the queue needs.
type lista interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb lista
}

func NewDispatcher(rdb redis.Cmdable) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarCredito pushes a failed inventory credit for retry.
func (d *Dispatcher) EncolarCredito(ctx context.Context, job CreditoJob) error {
	return enqueue(ctx, d.rdb, QueueCreditoInventario, JobCreditoInventario, job, 0)
}

func enqueue(ctx context.Context, rdb lista, queue, jobType string, payload interface{}, attempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data, Attempts: attempts})
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the credit queue.
type Pool struct {
	rdb         *redis.Client
	acreditador Acreditador
	maxIntentos int
	metrics     *infra.Metrics
}

func NewPool(rdb *redis.Client, acreditador Acreditador, maxIntentos int, m *infra.Metrics) *Pool {
	if maxIntentos < 1 {
		maxIntentos = DefaultMaxIntentos
	}
	return &Pool{rdb: rdb, acreditador: acreditador, maxIntentos: maxIntentos, metrics: m}
}

// StartWorkerPool launches numWorkers goroutines consuming the credit queue.
// Each goroutine blocks on BRPOP and costs nothing while idle.
func (p *Pool) StartWorkerPool(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueCreditoInventario).Result()
			if err != nil {
				if espera := pausaTrasPop(ctx, err); espera > 0 {
					log.Warn().Err(err).Int("worker", id).Dur("backoff", espera).Msg("queue pop failed")
					select {
					case <-ctx.Done():
					case <-time.After(espera):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, p.rdb, result[0], result[1])
		}
	}
}

const popBackoff = 2 * time.Second

// pausaTrasPop is how long a worker waits after a failed BRPOP. An empty
// queue (redis.Nil) or a shutdown loops right away; anything else means redis
// is unreachable.
func pausaTrasPop(ctx context.Context, err error) time.Duration {
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return 0
	}
	return popBackoff
}

// Decision is what happens to a job after one attempt.
type Decision int

const (
	Completado Decision = iota
	Reintentar
	EnviarDLQ
)

// Decidir is the retry policy: success completes, failure is retried until
// intento reaches max, then dead-lettered.
func Decidir(intento, max int, err error) Decision {
	switch {
	case err == nil:
		return Completado
	case intento >= max:
		return EnviarDLQ
	default:
		return Reintentar
	}
}

func (p *Pool) processJob(ctx context.Context, rdb lista, queue, raw string) Decision {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, "desconocido", quoted, "json inválido", 0)
		return EnviarDLQ
	}

	var credito CreditoJob
	err := json.Unmarshal(job.Payload, &credito)
	if err == nil {
		var created bool
		created, err = p.acreditador.AcreditarAnulacion(ctx, credito.VentaID, credito.ProductoID, credito.Cantidad, credito.Nota)
		if err == nil {
			log.Info().
				Str("venta_id", credito.VentaID.String()).
				Str("producto_id", credito.ProductoID.String()).
				Bool("created", created).
				Int("attempt", job.Attempts+1).
				Msg("inventory credit retried")
		}
	}

	intento := job.Attempts + 1
	decision := Decidir(intento, p.maxIntentos, err)
	switch decision {
	case Reintentar:
		p.metrics.CreditoFallido("reintento")
		if perr := enqueue(ctx, rdb, queue, job.Type, job.Payload, intento); perr != nil {
			log.Error().Err(perr).Str("queue", queue).Msg("failed to requeue job")
		}
	case EnviarDLQ:
		p.metrics.CreditoFallido("dlq")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), intento)
	}
	return decision
}
