package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRunsAllTasks(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	var count int64
	g, _ := WithContext(context.Background(), pool)
	for i := 0; i < 20; i++ {
		g.Go(func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(20), atomic.LoadInt64(&count))
}

func TestGroupReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")

	for _, tc := range []struct {
		name   string
		pooled bool
	}{
		{name: "pool", pooled: true},
		{name: "goroutines", pooled: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, ctx := WithContext(context.Background(), nil)
			if tc.pooled {
				pool, err := NewPool(2)
				require.NoError(t, err)
				defer pool.Release()
				g, ctx = WithContext(context.Background(), pool)
			}

			g.Go(func(context.Context) error { return boom })
			g.Go(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			})

			err := g.Wait()
			require.Error(t, err)
			assert.True(t, errors.Is(err, boom) || errors.Is(err, context.Canceled))
			assert.Error(t, ctx.Err())
		})
	}
}

func TestGroupSubmitToReleasedPool(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	pool.Release()

	g, _ := WithContext(context.Background(), pool)
	g.Go(func(context.Context) error { return nil })
	require.Error(t, g.Wait())
}
