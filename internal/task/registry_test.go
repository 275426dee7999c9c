package task

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// runRegistrySuite checks the lifecycle contract shared by every Registry.
func runRegistrySuite(t *testing.T, newRegistry func(t *testing.T) Registry) {
	t.Run("submit is pending", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()

		got, err := r.Submit(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, model.Task{ID: "t1", Message: "Task submitted", Status: model.TaskPending}, got)

		st, err := r.Status(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, got, st)
	})

	t.Run("update unknown id", func(t *testing.T) {
		r := newRegistry(t)
		_, err := r.Update(context.Background(), "missing", "x", model.TaskProcessing)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update walks the lifecycle", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		_, err := r.Submit(ctx, "t2")
		require.NoError(t, err)

		got, err := r.Update(ctx, "t2", "Processing and deduplicating leads", model.TaskProcessing)
		require.NoError(t, err)
		assert.Equal(t, model.TaskProcessing, got.Status)

		got, err = r.Update(ctx, "t2", "done", model.TaskCompleted)
		require.NoError(t, err)
		assert.Equal(t, model.TaskCompleted, got.Status)
		assert.Equal(t, "done", got.Message)
	})

	t.Run("terminal never reverts", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		_, err := r.Submit(ctx, "t3")
		require.NoError(t, err)
		_, err = r.Update(ctx, "t3", "boom", model.TaskFailed)
		require.NoError(t, err)

		for _, next := range []model.TaskStatus{model.TaskPending, model.TaskProcessing, model.TaskCompleted} {
			_, err = r.Update(ctx, "t3", "again", next)
			assert.ErrorIs(t, err, ErrTerminal)
		}

		st, err := r.Status(ctx, "t3")
		require.NoError(t, err)
		assert.Equal(t, model.TaskFailed, st.Status)
		assert.Equal(t, "boom", st.Message)
	})

	t.Run("invalid status", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		_, err := r.Submit(ctx, "t4")
		require.NoError(t, err)
		_, err = r.Update(ctx, "t4", "x", model.TaskUnknown)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("remove then status is unknown", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		_, err := r.Submit(ctx, "t5")
		require.NoError(t, err)

		ok, err := r.Remove(ctx, "t5")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.Remove(ctx, "t5")
		require.NoError(t, err)
		assert.False(t, ok)

		st, err := r.Status(ctx, "t5")
		require.NoError(t, err)
		assert.Equal(t, model.Task{ID: "t5", Message: "Task not found", Status: model.TaskUnknown}, st)
	})
}

func TestMemoryRegistry(t *testing.T) {
	runRegistrySuite(t, func(*testing.T) Registry { return NewMemory() })
}

func TestMemoryRegistry_Concurrent(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%d", i)
			_, _ = r.Submit(ctx, id)
			_, _ = r.Update(ctx, id, "working", model.TaskProcessing)
			_, _ = r.Status(ctx, id)
			if i%2 == 0 {
				_, _ = r.Remove(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}

// TestRedisRegistry runs against a live server when PROSPECT_TEST_REDIS_ADDR
// is set.
func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("PROSPECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PROSPECT_TEST_REDIS_ADDR not set")
	}

	runRegistrySuite(t, func(t *testing.T) Registry {
		client := redis.NewClient(&redis.Options{Addr: addr})
		prefix := "prospect:test:" + uuid.NewString() + ":"
		r := NewRedisWithClient(client, prefix, time.Minute)
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewRedisWithClient_DefaultPrefix(t *testing.T) {
	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", 0)
	defer r.Close()
	assert.Equal(t, "prospect:task:abc", r.key("abc"))
}
