package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// NewPool 创建共享协程池，size<=0 时使用 ants 默认容量
func NewPool(size int) (*ants.Pool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool of %d workers: %w", size, err)
	}
	return pool, nil
}

// Group 在协程池上并发执行一组独立读取并汇合，第一个错误取消其余任务。
// 任务内部不能再向同一个池提交 Group，否则池满时会互相等待。
type Group struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// WithContext 创建任务组，pool 为空时每个任务使用独立协程
func WithContext(ctx context.Context, pool *ants.Pool) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{pool: pool, ctx: ctx, cancel: cancel}, ctx
}

// Go 提交一个任务
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	task := func() {
		defer g.wg.Done()
		if err := g.ctx.Err(); err != nil {
			g.fail(err)
			return
		}
		if err := fn(g.ctx); err != nil {
			g.fail(err)
		}
	}

	if g.pool == nil {
		go task()
		return
	}
	if err := g.pool.Submit(task); err != nil {
		g.wg.Done()
		g.fail(fmt.Errorf("failed to submit task to pool: %w", err))
	}
}

// Wait 等待所有任务完成，返回第一个错误
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}

func (g *Group) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel()
	})
}
