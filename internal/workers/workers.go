package workers

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/constraints"
)

// Plan controls how items are partitioned and how many goroutines consume
// the partitions. BlockSize takes precedence over Blocks; when both are zero
// the items form a single block.
type Plan struct {
	Jobs      int
	Blocks    int
	BlockSize int
}

func (p Plan) Validate() error {
	if p.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0")
	}
	if p.Blocks < 0 {
		return fmt.Errorf("blocks must be >= 0")
	}
	if p.BlockSize < 0 {
		return fmt.Errorf("block size must be >= 0")
	}
	return nil
}

// Block is a half-open index range over the input items.
type Block struct {
	Start int
	End   int
}

// Partition splits n items according to the plan.
func (p Plan) Partition(n int) []Block {
	if n <= 0 {
		return nil
	}
	if p.BlockSize > 0 {
		blocks := make([]Block, 0, (n+p.BlockSize-1)/p.BlockSize)
		for start := 0; start < n; start += p.BlockSize {
			blocks = append(blocks, Block{Start: start, End: clamp(start+p.BlockSize, 0, n)})
		}
		return blocks
	}
	count := clamp(p.Blocks, 1, n)
	blocks := make([]Block, 0, count)
	size, rem := n/count, n%count
	start := 0
	for i := 0; i < count; i++ {
		end := start + size
		if i < rem {
			end++
		}
		blocks = append(blocks, Block{Start: start, End: end})
		start = end
	}
	return blocks
}

// Map runs fn over every block and concatenates the results in input order.
// fn receives the block's items and the index of its first item. The first
// error observed is returned.
func Map[T, R any](ctx context.Context, items []T, plan Plan, fn func(ctx context.Context, block []T, offset int) ([]R, error)) ([]R, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	blocks := plan.Partition(len(items))
	if len(blocks) == 0 {
		return nil, nil
	}

	type job struct {
		idx   int
		block Block
	}
	type result struct {
		idx int
		out []R
		err error
	}

	jobs := make(chan job)
	results := make(chan result, len(blocks))

	workerCount := clamp(plan.Jobs, 1, len(blocks))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				out, err := fn(ctx, items[j.block.Start:j.block.End], j.block.Start)
				results <- result{idx: j.idx, out: out, err: err}
			}
		}()
	}

	for i, b := range blocks {
		jobs <- job{idx: i, block: b}
	}
	close(jobs)

	wg.Wait()
	close(results)

	gathered := make([][]R, len(blocks))
	var firstErr error
	firstErrIdx := len(blocks)
	for res := range results {
		if res.err != nil {
			if res.idx < firstErrIdx {
				firstErr, firstErrIdx = res.err, res.idx
			}
			continue
		}
		gathered[res.idx] = res.out
	}
	if firstErr != nil {
		return nil, firstErr
	}

	total := 0
	for _, out := range gathered {
		total += len(out)
	}
	flat := make([]R, 0, total)
	for _, out := range gathered {
		flat = append(flat, out...)
	}
	return flat, nil
}

// MapItems applies fn to each item, one result per item, in input order.
func MapItems[T, R any](ctx context.Context, items []T, plan Plan, fn func(idx int, item T) (R, error)) ([]R, error) {
	return Map(ctx, items, plan, func(_ context.Context, block []T, offset int) ([]R, error) {
		out := make([]R, len(block))
		for i, item := range block {
			r, err := fn(offset+i, item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	})
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
