package keys

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "e1")
	require.NoError(t, err)

	t.Run("other keys are independent", func(t *testing.T) {
		u, err := l.Lock(ctx, "e2")
		require.NoError(t, err)
		u()
	})

	t.Run("same key waits", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := l.Lock(short, "e1")
		assert.ErrorIs(t, err, ErrLockTimeout)
	})

	unlock()
	unlock() // idempotent

	u, err := l.Lock(ctx, "e1")
	require.NoError(t, err)
	u()

	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	var inside, maxInside int
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "e1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

// TestRedisLocker needs a live redis at REDIS_ADDR
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	l := NewRedisLocker(rdb, 2*time.Second)
	key := "test-" + time.Now().Format("150405.000000000")

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	again, err := l.Lock(ctx, key)
	require.NoError(t, err)
	again()
}
