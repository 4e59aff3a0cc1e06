// Package processor implements the batch scaling pipeline: discovery of
// input images, per-image decode/resample/encode, and a bounded worker
// pool that aggregates one result per input into a run summary.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Run executes the whole batch. Configuration errors (bad percent, missing
// input directory) are fatal and returned before any job starts; per-job
// errors are recorded in the Summary and never abort the run.
//
// updates may be nil; when set it receives incremental deltas for a
// progress UI and is never closed by Run.
func Run(ctx context.Context, opts Options, updates chan<- ProgressUpdate) (Summary, error) {
	return run(ctx, opts, DefaultCodec(), updates)
}

func run(ctx context.Context, opts Options, codec Codec, updates chan<- ProgressUpdate) (Summary, error) {
	var summary Summary

	if opts.Percent <= 0 {
		return summary, fmt.Errorf("%w (got %g)", ErrInvalidScale, opts.Percent)
	}
	if opts.Quality < 0 || opts.Quality > 100 {
		return summary, fmt.Errorf("quality must be between 0 and 100 (got %d)", opts.Quality)
	}

	files, err := Discover(opts.InputDir)
	if err != nil {
		return summary, err
	}

	summary.Total = len(files)
	if len(files) == 0 {
		return summary, nil
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output directory: %w", err)
	}

	jobs := buildJobs(files, opts)
	if updates != nil {
		updates <- ProgressUpdate{TotalDelta: len(jobs)}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan Job)
	results := make(chan Result)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobCh {
				// Once the run is cancelled, queued jobs fail fast;
				// results already produced stay valid.
				if ctx != nil && ctx.Err() != nil {
					results <- failed(Result{Path: job.Path, OutPath: job.OutPath}, ctx.Err())
					continue
				}
				results <- processJob(job, opts, codec)
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			jobCh <- job
		}
		close(jobCh)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		collect(&summary, res, updates)
	}

	return summary, nil
}

// buildJobs derives one Job per discovered file. Output names keep the
// input stem; the extension changes only for WebP conversion.
func buildJobs(files []string, opts Options) []Job {
	jobs := make([]Job, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		if opts.ToWebP {
			base = strings.TrimSuffix(base, filepath.Ext(base)) + ".webp"
		}
		jobs = append(jobs, Job{
			Path:    path,
			OutPath: filepath.Join(opts.OutputDir, base),
		})
	}
	return jobs
}

// collect folds one result into the summary. Results arrive from a single
// goroutine, so no locking is needed here.
func collect(summary *Summary, res Result, updates chan<- ProgressUpdate) {
	switch res.Outcome {
	case OutcomeSuccess:
		summary.Succeeded++
		summary.BytesSaved += res.BytesSaved
		summary.TagsStripped += res.TagsStripped
		if updates != nil {
			updates <- ProgressUpdate{SuccessDelta: 1, BytesSavedDelta: res.BytesSaved}
		}
	case OutcomeSkipped:
		summary.Skipped++
		if updates != nil {
			updates <- ProgressUpdate{SkippedDelta: 1}
		}
	case OutcomeFailed:
		reason := "unknown error"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, Failure{Path: res.Path, Reason: reason})
		if updates != nil {
			updates <- ProgressUpdate{FailedDelta: 1}
		}
	}
}
