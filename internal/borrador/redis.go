package borrador

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps drafts as JSON strings with a TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Obtener(ctx context.Context, clave Clave) (*Borrador, bool, error) {
	val, err := s.client.Get(ctx, clave.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var b Borrador
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return nil, false, err
	}
	b.Contado = b.Contado.Completar()
	return &b, true, nil
}

func (s *RedisStore) Guardar(ctx context.Context, clave Clave, b Borrador) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, clave.String(), payload, s.ttl).Err()
}

func (s *RedisStore) Eliminar(ctx context.Context, clave Clave) error {
	return s.client.Del(ctx, clave.String()).Err()
}
