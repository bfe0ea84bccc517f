package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead-letter list of each queue: dlq:<queue>.
// Credits land there after exhausting their retries and wait for an operator.
const DLQPrefix = "dlq:"

// DLQEntry is a parked job plus why and when it was given up on.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339, UTC
	Attempts      int             `json:"attempts"`
}

// Credito decodes the payload of a credit entry. ok is false for entries of
// another job type or with a payload that no longer parses.
func (e DLQEntry) Credito() (job CreditoJob, ok bool) {
	if e.JobType != JobCreditoInventario {
		return CreditoJob{}, false
	}
	if err := json.Unmarshal(e.Payload, &job); err != nil {
		return CreditoJob{}, false
	}
	return job, true
}

// SendToDLQ parks a job. Failures are only logged: the retry loop has
// already given up on it.
func SendToDLQ(ctx context.Context, rdb lista, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal entry")
		return
	}

	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Str("payload", string(payload)).Msg("dlq: push failed, job dropped")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job parked")
}

// DLQLength reports how many jobs of queue are parked.
func DLQLength(ctx context.Context, rdb redis.Cmdable, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// ListDLQ returns up to limit parked jobs of queue, newest first. Entries that
// do not decode are skipped.
func ListDLQ(ctx context.Context, rdb redis.Cmdable, queue string, limit int64) ([]DLQEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: skipping undecodable entry")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
