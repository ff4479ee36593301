package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/lohmm-traces/internal/domain"
	"github.com/ashureev/lohmm-traces/internal/normalize"
	"github.com/ashureev/lohmm-traces/internal/trace"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// Result is the outcome of normalizing a corpus.
type Result struct {
	Sources  []string
	Sessions []*domain.Session // kept sessions in input order
	Paths    *domain.PathDomain
	Stats    domain.Stats
}

// Runner segments sources and normalizes their sessions concurrently.
type Runner struct {
	pipeline  *normalize.Pipeline
	segmenter *trace.Segmenter
	workers   int
	logger    *slog.Logger
}

// NewRunner creates a runner with the given pool size.
func NewRunner(pipeline *normalize.Pipeline, workers int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		pipeline:  pipeline,
		segmenter: trace.NewSegmenter(logger),
		workers:   workers,
		logger:    logger,
	}
}

// Run reads every source and normalizes the whole corpus. An unreadable
// source fails the run; malformed sessions are only counted.
func (r *Runner) Run(ctx context.Context, sources []Source) (*Result, error) {
	texts := make(map[string]string, len(sources))
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := src.Read()
		if err != nil {
			return nil, err
		}
		texts[src.Name] = text
		names = append(names, src.Name)
		r.logger.Debug("Source read", "source", src.Name, "bytes", len(text))
	}
	return r.run(ctx, names, texts)
}

// RunText normalizes a single transcript held in memory.
func (r *Runner) RunText(ctx context.Context, name, text string) (*Result, error) {
	return r.run(ctx, []string{name}, map[string]string{name: text})
}

func (r *Runner) run(ctx context.Context, names []string, texts map[string]string) (*Result, error) {
	var stats domain.Stats
	var raws []domain.RawSession
	for _, name := range names {
		seg := r.segmenter.Segment(name, texts[name])
		stats.Sources++
		stats.Blocks += seg.Blocks
		stats.MisalignedSessions += len(seg.Misaligned)
		raws = append(raws, seg.Sessions...)
	}

	sessions, paths, workerStats, err := r.normalize(ctx, raws)
	if err != nil {
		return nil, err
	}
	stats.Add(workerStats)
	stats.Paths = paths.Len()

	return &Result{
		Sources:  names,
		Sessions: sessions,
		Paths:    paths,
		Stats:    stats,
	}, nil
}

type job struct {
	index int
	raw   domain.RawSession
}

// partial is the private state of one worker, merged after all workers finish.
type partial struct {
	paths *domain.PathDomain
	stats domain.Stats
	err   error
}

// normalize fans raws out to the worker pool. Each session is handled by
// exactly one worker, which writes only its own slot of the result slice.
func (r *Runner) normalize(ctx context.Context, raws []domain.RawSession) ([]*domain.Session, *domain.PathDomain, domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, domain.Stats{}, err
	}

	slots := make([]*domain.Session, len(raws))
	partials := make([]partial, r.workers)
	jobs := make(chan job, r.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		partials[w].paths = domain.NewPathDomain()
		wg.Add(1)
		go func(p *partial) {
			defer wg.Done()
			for j := range jobs {
				session, err := r.pipeline.Process(j.raw)
				if err != nil {
					if errors.Is(err, normalize.ErrNoAnchor) {
						p.stats.NoAnchorSessions++
						continue
					}
					if p.err == nil {
						p.err = fmt.Errorf("normalize session %s#%d: %w", j.raw.Source, j.raw.Ordinal, err)
					}
					continue
				}
				p.stats.CountSession(session)
				p.paths.Merge(session.Paths)
				slots[j.index] = session
			}
		}(&partials[w])
	}

	var cancelErr error
feed:
	for i, raw := range raws {
		select {
		case jobs <- job{index: i, raw: raw}:
		case <-ctx.Done():
			cancelErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if cancelErr != nil {
		r.logger.Warn("Normalization cancelled", "error", cancelErr)
		return nil, nil, domain.Stats{}, cancelErr
	}

	paths := domain.NewPathDomain()
	var stats domain.Stats
	for _, p := range partials {
		if p.err != nil {
			return nil, nil, domain.Stats{}, p.err
		}
		paths.Merge(p.paths)
		stats.Add(p.stats)
	}

	sessions := make([]*domain.Session, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, paths, stats, nil
}
