package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/lock"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, lock.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
}

func TestWithLockSerialisesHolders(t *testing.T) {
	mr, locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		order  []string
		wg     sync.WaitGroup
		inside = make(chan struct{})
		leave  = make(chan struct{})
	)
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = locker.WithLock(ctx, "pricing:seed", time.Second, func(context.Context) error {
			record("first")
			close(inside)
			<-leave
			return nil
		})
	}()
	<-inside
	go func() {
		defer wg.Done()
		_ = locker.WithLock(ctx, "pricing:seed", time.Second, func(context.Context) error {
			record("second")
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Equal(t, []string{"first"}, order)
	mu.Unlock()
	close(leave)
	wg.Wait()

	require.Equal(t, []string{"first", "second"}, order)
	require.False(t, mr.Exists("pricing:seed"))
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	mr, locker := newLocker(t)
	require.NoError(t, mr.Set("pricing:migrate", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithLock(ctx, "pricing:migrate", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)

	got, err := mr.Get("pricing:migrate")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got, "foreign lock is left alone")
}

func TestWithLockWithoutRedis(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNoClient)
}
