package stats

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zalepa/vacstat/vacancy"
)

// Options configure a pipeline run.
type Options struct {
	Profession string
	// Dir receives the per-year partition files. When empty a temporary
	// directory is used and removed afterwards.
	Dir string
	// Workers bounds the number of partitions aggregated at once. Zero
	// means GOMAXPROCS.
	Workers int
	// Sort orders records by date before partitioning. Without it, input
	// that is not already ordered fails with ErrUnsortedInput.
	Sort bool
}

// Result is the outcome of a pipeline run.
type Result struct {
	Statistics Statistics
	Partitions []PartitionFile

	Rows       int
	Malformed  int
	Unresolved int
	Skipped    int
	Elapsed    time.Duration
}

// Pipeline partitions a dataset by year, aggregates the partitions in
// parallel and merges the results.
type Pipeline struct {
	opts       Options
	normalizer Normalizer
	logger     *zap.Logger
}

// NewPipeline returns a Pipeline.
func NewPipeline(opts Options, n Normalizer, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{opts: opts, normalizer: n, logger: logger}
}

// Run processes the dataset at path.
func (p *Pipeline) Run(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	h, rows, err := vacancy.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	parts, malformed, err := PartitionRows(h, rows, p.opts.Sort)
	if err != nil {
		return Result{}, fmt.Errorf("partition %s: %w", path, err)
	}
	p.logger.Info("dataset partitioned",
		zap.String("dataset", path),
		zap.Int("rows", len(rows)),
		zap.Int("partitions", len(parts)))
	if malformed > 0 {
		p.logger.Warn("dropped malformed rows", zap.Int("count", malformed))
	}

	res := Result{Rows: len(rows), Malformed: malformed}
	if len(parts) == 0 {
		res.Statistics = NewStatistics(p.opts.Profession, NewPartial())
		res.Elapsed = time.Since(start)
		return res, nil
	}

	dir := p.opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "vacstat-partitions-")
		if err != nil {
			return Result{}, fmt.Errorf("create partition directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	files, err := WritePartitions(dir, path, h, parts)
	if err != nil {
		return Result{}, err
	}
	res.Partitions = files

	merged, err := p.aggregate(ctx, files)
	if err != nil {
		return Result{}, err
	}

	res.Statistics = NewStatistics(p.opts.Profession, merged)
	res.Unresolved = merged.Unresolved
	res.Skipped = merged.Skipped
	res.Elapsed = time.Since(start)
	if merged.Unresolved > 0 {
		p.logger.Warn("excluded postings without exchange rate", zap.Int("count", merged.Unresolved))
	}
	p.logger.Info("statistics ready",
		zap.Int("years", len(res.Statistics.Salary)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// aggregate runs one task per partition file and merges the results once
// every task has returned. The first failure cancels the remaining tasks.
func (p *Pipeline) aggregate(ctx context.Context, files []PartitionFile) (Partial, error) {
	results := make([]Partial, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("partition %d (%s): panic: %v", file.Year, file.Path, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			partial, err := p.aggregateFile(file)
			if err != nil {
				return fmt.Errorf("partition %d (%s): %w", file.Year, file.Path, err)
			}
			results[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Partial{}, err
	}
	return Merge(results...), nil
}

func (p *Pipeline) aggregateFile(file PartitionFile) (Partial, error) {
	records, err := ReadPartition(file.Path)
	if err != nil {
		return Partial{}, err
	}
	partial, err := Aggregate(records, p.opts.Profession, p.normalizer)
	if err != nil {
		return Partial{}, err
	}
	p.logger.Debug("partition aggregated",
		zap.Int("year", file.Year),
		zap.Int("records", len(records)),
		zap.Int("unresolved", partial.Unresolved))
	return partial, nil
}
