package processor

import "errors"

// Fatal configuration errors, reported before any job runs.
var (
	ErrInvalidScale      = errors.New("scale percent must be greater than 0")
	ErrDirectoryNotFound = errors.New("input directory not found")
)

// Outcome tags a finished job.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options carries the full per-run configuration. The worker count is
// explicit here rather than read from the environment inside the pool, so
// runs are reproducible under test.
type Options struct {
	Percent       float64
	InputDir      string
	OutputDir     string
	Quality       int
	Optimize      bool
	StripMetadata bool
	ToWebP        bool
	WebPLossless  bool
	Workers       int
	SkipExisting  bool
}

// Job is one unit of work: a source image and its resolved destination.
// Immutable once built.
type Job struct {
	Path    string
	OutPath string
}

// Result reports the outcome of exactly one Job.
type Result struct {
	Path         string
	OutPath      string
	Outcome      Outcome
	Err          error
	BytesSaved   int64
	TagsStripped int
}

// Failure is the per-file detail kept for the final report.
type Failure struct {
	Path   string
	Reason string
}

// Summary aggregates all results of a run. Every discovered input is
// accounted for under exactly one outcome.
type Summary struct {
	Total        int
	Succeeded    int
	Skipped      int
	Failed       int
	BytesSaved   int64
	TagsStripped int
	Failures     []Failure
}

// ProgressUpdate carries incremental deltas to the progress UI.
type ProgressUpdate struct {
	TotalDelta      int
	SuccessDelta    int
	SkippedDelta    int
	FailedDelta     int
	BytesSavedDelta int64
}
