package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

const defaultKeyPrefix = "prospect:task:"

// maxUpdateAttempts bounds optimistic retries when another writer touches the
// same key during an update.
const maxUpdateAttempts = 5

// RedisConfig holds the connection settings for NewRedis.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Redis is a Registry shared by several processes. Tasks are stored as JSON
// strings. A non-zero TTL expires abandoned entries.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "task: connect redis")
	}

	return NewRedisWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *Redis) key(id string) string { return r.keyPrefix + id }

// Submit implements Registry.
func (r *Redis) Submit(ctx context.Context, id string) (model.Task, error) {
	t := model.Task{ID: id, Message: MsgSubmitted, Status: model.TaskPending}
	data, err := json.Marshal(t)
	if err != nil {
		return model.Task{}, eris.Wrap(err, "task: marshal")
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return model.Task{}, eris.Wrapf(err, "task: submit %s", id)
	}
	return t, nil
}

// Update implements Registry. The read-check-write runs in a WATCH
// transaction and is retried when the key changes underneath it.
func (r *Redis) Update(ctx context.Context, id, message string, status model.TaskStatus) (model.Task, error) {
	key := r.key(id)
	var result model.Task

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return eris.Wrapf(ErrNotFound, "task %s", id)
		}
		if err != nil {
			return eris.Wrapf(err, "task: get %s", id)
		}

		var current model.Task
		if err := json.Unmarshal(raw, &current); err != nil {
			return eris.Wrapf(err, "task: decode %s", id)
		}
		if err := checkTransition(id, current, status); err != nil {
			result = current
			return err
		}

		current.Message = message
		current.Status = status
		data, err := json.Marshal(current)
		if err != nil {
			return eris.Wrap(err, "task: marshal")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			result = current
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return model.Task{}, eris.Errorf("task: update %s: too much contention", id)
}

// Status implements Registry.
func (r *Redis) Status(ctx context.Context, id string) (model.Task, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Unknown(id), nil
	}
	if err != nil {
		return model.Task{}, eris.Wrapf(err, "task: get %s", id)
	}
	var t model.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Task{}, eris.Wrapf(err, "task: decode %s", id)
	}
	return t, nil
}

// Remove implements Registry.
func (r *Redis) Remove(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, eris.Wrapf(err, "task: remove %s", id)
	}
	return n > 0, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
