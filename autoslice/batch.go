package autoslice

import (
	"context"
	"fmt"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// BatchResult records the outcome for one input file of a batch run.
type BatchResult struct {
	Input  string
	Output string
	Err    error
}

// Failed counts how many results carry an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// SliceAll slices each file as its own single-volume print, fanning the work
// out over a bounded worker pool with a progress bar.  A file that fails to
// slice is recorded in its result and doesn't stop the rest of the batch;
// only context cancellation aborts the run.
func (p *Pipeline) SliceAll(ctx context.Context, files []string, outputDir string, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(files))

	type job struct {
		index int
		path  string
	}
	jobQueue := make(chan job, len(files))
	for i, f := range files {
		jobQueue <- job{index: i, path: f}
	}
	close(jobQueue)

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("slicing:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
		),
	)

	grp, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		grp.Go(func() error {
			for j := range jobQueue {
				select {
				case <-gctx.Done():
					return context.Cause(gctx)
				default:
				}

				output, err := p.Slice(gctx, []Volume{{Path: j.path}}, outputDir)
				if err != nil {
					p.Logger.Error("slice failed", "input", j.path, "error", err)
				}
				results[j.index] = BatchResult{Input: j.path, Output: output, Err: err}
				bar.Increment()
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return results, fmt.Errorf("autoslice: batch aborted: %w", err)
	}

	// wait for the bar to flush
	progress.Wait()

	return results, nil
}
