package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// PrefetchOpts contains configuration for video prefetching.
type PrefetchOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Searches per second (default: 2)
	MaxResults int     // Videos per module (default: 2)
	Language   string  // Relevance language code (default: en)
}

// PrefetchResult holds the per-module outcome of a prefetch.
type PrefetchResult struct {
	Modules map[string]curriculum.VideoResult
	Found   int // Modules with a successful search
	Failed  int // Modules whose search failed
}

type prefetchJob struct {
	module models.CurriculumModule
}

type prefetchOutcome struct {
	moduleID string
	title    string
	result   curriculum.VideoResult
	err      error
}

// PrefetchVideos searches videos for every module concurrently with rate limiting.
//
// Failures degrade per module: the module gets an empty list and a notice, and the remaining modules continue.
// The error is non-nil only when the context ends before every module was searched.
func (e *PathEngine) PrefetchVideos(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	c *models.GeneratedCurriculum,
	opts PrefetchOpts,
) (*PrefetchResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 2
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	result := &PrefetchResult{Modules: make(map[string]curriculum.VideoResult, len(c.Modules))}
	if len(c.Modules) == 0 {
		return result, nil
	}

	if e.videos == nil {
		for _, m := range c.Modules {
			result.Modules[m.ID] = curriculum.VideoResult{Videos: []models.Video{}, Notice: curriculum.NoticeVideosNotConfigured}
		}
		result.Failed = len(c.Modules)
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan prefetchJob, len(c.Modules))
	results := make(chan prefetchOutcome, len(c.Modules))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.prefetchWorker(ctx, &wg, c.Title, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, m := range c.Modules {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- prefetchJob{module: m}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Modules[res.moduleID] = res.result
		if res.err != nil {
			result.Failed++
			e.logger.Warn("video search failed", "module", res.moduleID, "err", res.err)
			e.sendProgress(prog, prefetchFailedUpdate(completed, len(c.Modules), res.title, res.result.Notice))
			continue
		}
		result.Found++
		e.sendProgress(prog, prefetchModuleUpdate(completed, len(c.Modules), res.title, len(res.result.Videos)))
	}

	if completed < len(c.Modules) {
		return result, fmt.Errorf("%w: searched %d of %d modules: %w", shared.ErrTimeout, completed, len(c.Modules), ctx.Err())
	}
	return result, nil
}

// prefetchWorker searches videos for modules from the jobs channel.
func (e *PathEngine) prefetchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	title string,
	jobs <-chan prefetchJob,
	results chan<- prefetchOutcome,
	opts PrefetchOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := curriculum.FetchVideos(ctx, e.videos, services.VideoQuery{
			Query:      curriculum.VideoQuery(title, job.module),
			MaxResults: opts.MaxResults,
			Language:   opts.Language,
		})
		results <- prefetchOutcome{moduleID: job.module.ID, title: job.module.Title, result: res, err: err}
	}
}
