package render

import (
	"context"

	"github.com/paveg/dispatch/internal/parallel"
	"github.com/paveg/dispatch/internal/scratch"
	"github.com/paveg/dispatch/internal/validation"
)

// RowTask shades rows of the renderer's frame. Each worker owns one, along
// with the scratch arena it draws its escape-time buffer from.
type RowTask struct {
	r     *Renderer
	arena *scratch.Arena
}

// Execute shades row y.
func (t *RowTask) Execute(y int) error {
	defer t.arena.Reset()

	frame := t.r.frame
	escape, err := t.arena.Float64s(frame.Width)
	if err != nil {
		return err
	}
	t.r.scene.shadeRow(escape, y, frame.Width, frame.Height)
	t.r.scene.colorize(frame.Row(y), escape)
	return nil
}

// Cleanup returns the worker's scratch memory.
func (t *RowTask) Cleanup() {
	t.arena.Release()
}

// Renderer renders frames of a Scene with one dispatcher round per frame.
// It is not safe for concurrent use.
type Renderer struct {
	frame      *Frame
	scene      Scene
	pool       *scratch.AllocatorPool
	dispatcher *parallel.Dispatcher
}

// NewRenderer provisions a worker pool for width x height frames. If pool is
// nil a default allocator pool is used.
func NewRenderer(width, height int, scene Scene, pool *scratch.AllocatorPool, opts ...parallel.Option) (*Renderer, error) {
	if err := validation.ValidatePositive(scene.MaxIter, "renderer", "max iterations"); err != nil {
		return nil, err
	}
	frame, err := NewFrame(width, height)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = scratch.NewAllocatorPool(0)
	}

	r := &Renderer{frame: frame, scene: scene, pool: pool}
	r.dispatcher, err = parallel.NewPerWorker(height, func(worker int) parallel.Task {
		return &RowTask{r: r, arena: scratch.NewArena(pool, worker)}
	}, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Workers returns the pool size.
func (r *Renderer) Workers() int {
	return r.dispatcher.Workers()
}

// Scene returns the scene of the next frame.
func (r *Renderer) Scene() Scene {
	return r.scene
}

// SetScene replaces the scene for subsequent frames.
func (r *Renderer) SetScene(scene Scene) {
	r.scene = scene
}

// Render shades one frame. The returned frame is reused by the next call.
func (r *Renderer) Render(ctx context.Context) (*Frame, error) {
	if err := r.dispatcher.Run(ctx); err != nil {
		return nil, err
	}
	return r.frame, nil
}

// Animate renders frames frames, zooming the scene by zoom after each, and
// hands every frame to fn. The pool is reused for every frame.
func (r *Renderer) Animate(ctx context.Context, frames int, zoom float64, fn func(index int, frame *Frame) error) error {
	for i := range frames {
		frame, err := r.Render(ctx)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(i, frame); err != nil {
				return err
			}
		}
		r.scene = r.scene.Zoom(zoom)
	}
	return nil
}

// Close tears down the pool and waits until every worker has released its
// scratch memory.
func (r *Renderer) Close() {
	r.dispatcher.Finish()
	<-r.dispatcher.Done()
	r.pool.Close()
}
