// Package scrape implements job offer fetching across the configured boards.
package scrape

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svensoldin/job-curator-mono/internal/domain"
	"github.com/svensoldin/job-curator-mono/internal/observability"
)

// Descriptions shorter than this are kept but flagged as unusable-looking.
const minDescriptionLen = 100

// Source is one external job board.
type Source interface {
	Name() string
	// List returns at most limit candidate postings for the criteria.
	List(ctx context.Context, criteria domain.ScrapeCriteria, limit int) ([]domain.JobPosting, error)
	// Describe fetches the full description for a posting returned by List.
	Describe(ctx context.Context, job domain.JobPosting) (string, error)
}

// DescriptionCache is a best-effort cache of fetched descriptions keyed by
// posting URL. A nil-safe no-op implementation is acceptable.
type DescriptionCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, description string)
}

// SnapshotStore archives the raw fetched description for later inspection.
type SnapshotStore interface {
	Archive(ctx context.Context, source, url, body string) error
}

type Config struct {
	PerSourceLimit int
	ListTimeout    time.Duration
	DetailTimeout  time.Duration
	DetailDelay    time.Duration
}

// Orchestrator runs all sources in parallel, paces the per-posting detail
// fetches within each source, merges and deduplicates the results.
type Orchestrator struct {
	sources   []Source
	cfg       Config
	cache     DescriptionCache // optional
	snapshots SnapshotStore    // optional
}

func NewOrchestrator(sources []Source, cfg Config, cache DescriptionCache, snapshots SnapshotStore) *Orchestrator {
	if cfg.PerSourceLimit <= 0 {
		cfg.PerSourceLimit = 15
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 30 * time.Second
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = 15 * time.Second
	}
	if cfg.DetailDelay <= 0 {
		cfg.DetailDelay = time.Second
	}

	return &Orchestrator{
		sources:   sources,
		cfg:       cfg,
		cache:     cache,
		snapshots: snapshots,
	}
}

// Scrape fans out over all sources. A source failing entirely contributes
// zero postings; the others still flow forward, so the returned error is
// always nil unless the context itself is done.
func (o *Orchestrator) Scrape(ctx context.Context, criteria domain.ScrapeCriteria) ([]domain.JobPosting, error) {
	results := make([][]domain.JobPosting, len(o.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = o.scrapeSource(gctx, src, criteria)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []domain.JobPosting
	for _, r := range results {
		merged = append(merged, r...)
	}

	unique := Dedup(merged)
	slog.Info("scrape complete",
		slog.String("job_title", criteria.JobTitle),
		slog.Int("total", len(merged)),
		slog.Int("unique", len(unique)),
	)

	return unique, nil
}

func (o *Orchestrator) scrapeSource(ctx context.Context, src Source, criteria domain.ScrapeCriteria) []domain.JobPosting {
	logger := slog.With(slog.String("source", src.Name()))

	listCtx, cancel := context.WithTimeout(ctx, o.cfg.ListTimeout)
	jobs, err := src.List(listCtx, criteria, o.cfg.PerSourceLimit)
	cancel()
	if err != nil {
		logger.Warn("source list failed, contributing zero postings", slog.String("error", err.Error()))
		return nil
	}

	if len(jobs) > o.cfg.PerSourceLimit {
		jobs = jobs[:o.cfg.PerSourceLimit]
	}
	logger.Info("listed postings", slog.Int("count", len(jobs)))

	for i := range jobs {
		if ctx.Err() != nil {
			return jobs[:i]
		}

		if jobs[i].Description == "" {
			jobs[i].Description = o.fetchDescription(ctx, src, jobs[i], logger)

			// Politeness pacing between detail requests to the same board.
			if i < len(jobs)-1 {
				select {
				case <-ctx.Done():
					return jobs[:i+1]
				case <-time.After(o.cfg.DetailDelay):
				}
			}
		}

		if len(jobs[i].Description) < minDescriptionLen {
			logger.Warn("no usable description", slog.String("title", jobs[i].Title))
		}
	}

	observability.PostingsScraped.WithLabelValues(src.Name()).Add(float64(len(jobs)))
	return jobs
}

// fetchDescription degrades to an empty string on any failure: a posting
// without a description is still a posting.
func (o *Orchestrator) fetchDescription(ctx context.Context, src Source, job domain.JobPosting, logger *slog.Logger) string {
	if o.cache != nil {
		if desc, ok := o.cache.Get(ctx, job.URL); ok {
			return desc
		}
	}

	detailCtx, cancel := context.WithTimeout(ctx, o.cfg.DetailTimeout)
	defer cancel()

	desc, err := src.Describe(detailCtx, job)
	if err != nil {
		logger.Warn("description fetch failed",
			slog.String("title", job.Title),
			slog.String("error", err.Error()),
		)
		return ""
	}

	if o.cache != nil && desc != "" {
		o.cache.Set(ctx, job.URL, desc)
	}

	if o.snapshots != nil && desc != "" {
		if err := o.snapshots.Archive(ctx, src.Name(), job.URL, desc); err != nil {
			logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
		}
	}

	return desc
}
