// README: Redis outbox for analysed reports whose durable write failed. Entries wait for an explicit retry.
package incident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ridesafe/internal/types"
)

const pendingTTL = 7 * 24 * time.Hour

var ErrPendingNotFound = errors.New("pending submission not found")

type PendingSubmission struct {
	ID       string    `json:"id"`
	Record   Record    `json:"record"`
	Attempts int       `json:"attempts"`
	LastErr  string    `json:"last_error"`
	ParkedAt time.Time `json:"parked_at"`
}

// Outbox holds records that were analysed but not committed.
type Outbox interface {
	Park(ctx context.Context, rec Record, cause error) (PendingSubmission, error)
	Get(ctx context.Context, id string) (PendingSubmission, error)
	Touch(ctx context.Context, p PendingSubmission, cause error) error
	Remove(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID types.ID) ([]PendingSubmission, error)
}

func pendingKey(id string) string           { return "incident:pending:" + id }
func pendingUserKey(userID types.ID) string { return "incident:pending:user:" + string(userID) }

type RedisOutbox struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisOutbox(rdb *redis.Client) *RedisOutbox {
	return &RedisOutbox{redis: rdb, now: time.Now}
}

func (o *RedisOutbox) Park(ctx context.Context, rec Record, cause error) (PendingSubmission, error) {
	p := PendingSubmission{
		ID:       uuid.NewString(),
		Record:   rec,
		Attempts: 1,
		ParkedAt: o.now().UTC(),
	}
	if cause != nil {
		p.LastErr = cause.Error()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return PendingSubmission{}, fmt.Errorf("marshal pending: %w", err)
	}
	pipe := o.redis.TxPipeline()
	pipe.Set(ctx, pendingKey(p.ID), raw, pendingTTL)
	pipe.ZAdd(ctx, pendingUserKey(rec.UserID), redis.Z{Score: float64(p.ParkedAt.UnixMilli()), Member: p.ID})
	pipe.Expire(ctx, pendingUserKey(rec.UserID), pendingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return PendingSubmission{}, fmt.Errorf("redis park pending: %w", err)
	}
	return p, nil
}

func (o *RedisOutbox) Get(ctx context.Context, id string) (PendingSubmission, error) {
	raw, err := o.redis.Get(ctx, pendingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingSubmission{}, ErrPendingNotFound
	}
	if err != nil {
		return PendingSubmission{}, fmt.Errorf("redis get pending: %w", err)
	}
	var p PendingSubmission
	if err := json.Unmarshal(raw, &p); err != nil {
		return PendingSubmission{}, fmt.Errorf("decode pending %s: %w", id, err)
	}
	return p, nil
}

// Touch records another failed attempt on an existing entry.
func (o *RedisOutbox) Touch(ctx context.Context, p PendingSubmission, cause error) error {
	p.Attempts++
	if cause != nil {
		p.LastErr = cause.Error()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}
	if err := o.redis.Set(ctx, pendingKey(p.ID), raw, pendingTTL).Err(); err != nil {
		return fmt.Errorf("redis touch pending: %w", err)
	}
	return nil
}

func (o *RedisOutbox) Remove(ctx context.Context, id string) error {
	p, err := o.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := o.redis.TxPipeline()
	pipe.Del(ctx, pendingKey(id))
	pipe.ZRem(ctx, pendingUserKey(p.Record.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis remove pending: %w", err)
	}
	return nil
}

func (o *RedisOutbox) ListByUser(ctx context.Context, userID types.ID) ([]PendingSubmission, error) {
	ids, err := o.redis.ZRevRange(ctx, pendingUserKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list pending: %w", err)
	}
	out := make([]PendingSubmission, 0, len(ids))
	for _, id := range ids {
		p, err := o.Get(ctx, id)
		if errors.Is(err, ErrPendingNotFound) {
			// expired entry still indexed
			o.redis.ZRem(ctx, pendingUserKey(userID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
