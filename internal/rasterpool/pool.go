// Package rasterpool provides a parallel tile-flattening worker pool, used to
// speed up LayerStack.ToImage on large canvases without changing its result.
package rasterpool

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/stroke/internal/paint"
)

// Task is one tile-grid coordinate to flatten.
type Task struct {
	I, J int32
}

// Result is the outcome of flattening one tile.
type Result struct {
	Task   Task
	Pixels [paint.TileSize * paint.TileSize]paint.Pixel
}

// Flattener matches paint.LayerStack's ability to flatten a single tile.
type Flattener interface {
	FlattenTilePixels(i, j int32) [paint.TileSize * paint.TileSize]paint.Pixel
}

// Config configures the worker pool.
type Config struct {
	Workers   int
	Flattener Flattener
}

// Pool runs tile-flatten tasks across a fixed number of goroutines.
type Pool struct {
	workers   int
	flattener Flattener
}

// New creates a pool. Workers <= 0 is treated as 1.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers, flattener: cfg.Flattener}
}

// Run flattens every task and returns results, order not guaranteed to match
// input order — callers place results by Task.I/Task.J, not by index.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
			}
		}
		close(taskCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			continue
		default:
		}
		results <- Result{Task: task, Pixels: p.flattener.FlattenTilePixels(task.I, task.J)}
	}
}

// FlattenCanvas renders ls to a row-major premultiplied pixel buffer using a
// pool of workers flattening tiles in parallel. The result is bit-identical
// to ls.ToImage(); only the wall-clock path differs.
func FlattenCanvas(ctx context.Context, ls *paint.LayerStack, workers int) []paint.Pixel {
	xtiles, ytiles := ls.TileGridSize()
	tasks := make([]Task, 0, xtiles*ytiles)
	for j := int32(0); j < ytiles; j++ {
		for i := int32(0); i < xtiles; i++ {
			tasks = append(tasks, Task{I: i, J: j})
		}
	}

	pool := New(Config{Workers: workers, Flattener: ls})
	results := pool.Run(ctx, tasks)

	flattened := make(map[[2]int32][paint.TileSize * paint.TileSize]paint.Pixel, len(results))
	for _, r := range results {
		flattened[[2]int32{r.Task.I, r.Task.J}] = r.Pixels
	}
	return ls.AssembleFlattened(flattened)
}
