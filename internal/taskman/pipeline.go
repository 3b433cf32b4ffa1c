package taskman

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
	"github.com/svensoldin/job-curator-mono/internal/observability"
)

// processTask runs the full pipeline for one task. Partial failures inside
// a stage (one source down, one posting unrankable, the database away) are
// absorbed by that stage; anything that escapes marks the task failed and
// the queue moves on.
func (m *Manager) processTask(task *domain.SearchTask) {
	logger := slog.With(slog.String("task_id", task.ID))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.failTask(task, fmt.Errorf("panic: %v", r), logger)
			observability.TaskDuration.Observe(time.Since(start).Seconds())
		}
	}()

	logger.Info("processing search task")
	m.setProgress(task, domain.StatusProcessing, 5, "Fetching job offers...")

	jobs, err := m.scraper.Scrape(m.baseCtx, task.Criteria.ScrapeCriteria())
	if err != nil {
		m.failTask(task, fmt.Errorf("scrape: %w", err), logger)
		observability.TaskDuration.Observe(time.Since(start).Seconds())
		return
	}

	if len(jobs) == 0 {
		// "No matches" is a valid outcome, not a failure.
		m.completeTask(task, []domain.JobPosting{}, "No matching job offers found")
		logger.Info("task completed with no matches")
		observability.TaskDuration.Observe(time.Since(start).Seconds())
		return
	}

	m.setProgress(task, domain.StatusProcessing, 65, "Analyzing job offers...")
	logger.Info("ranking postings", slog.Int("count", len(jobs)))

	ranked, err := m.ranker.Rank(m.baseCtx, jobs, task.Criteria)
	if err != nil {
		m.failTask(task, fmt.Errorf("rank: %w", err), logger)
		observability.TaskDuration.Observe(time.Since(start).Seconds())
		return
	}

	// Ties keep their pre-sort relative order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > m.cfg.MaxResults {
		ranked = ranked[:m.cfg.MaxResults]
	}

	m.setProgress(task, domain.StatusProcessing, 90, "Saving results to database...")
	m.persist(task, ranked, logger)

	m.completeTask(task, ranked, fmt.Sprintf("Found %d matching job offers", len(ranked)))
	logger.Info("task completed",
		slog.Int("results", len(ranked)),
		slog.String("duration", time.Since(start).String()),
	)
	observability.TaskDuration.Observe(time.Since(start).Seconds())
}

// persist mirrors the results into the store. Failures are logged and
// swallowed: the in-memory result is still servable to a polling client.
func (m *Manager) persist(task *domain.SearchTask, jobs []domain.JobPosting, logger *slog.Logger) {
	if m.store == nil {
		return
	}

	if err := m.store.UpdateTotal(m.baseCtx, task.SearchID, len(jobs)); err != nil {
		logger.Error("failed to update search record", slog.String("error", err.Error()))
	}

	if err := m.store.SaveResults(m.baseCtx, task.SearchID, jobs); err != nil {
		logger.Error("failed to save job results", slog.String("error", err.Error()))
		return
	}

	logger.Info("saved results to database", slog.Int("count", len(jobs)))
}

func (m *Manager) setProgress(task *domain.SearchTask, status domain.TaskStatus, progress int, message string) {
	m.mu.Lock()
	task.Status = status
	task.Progress = progress
	task.Message = message
	m.mu.Unlock()
}

// completeTask writes every terminal field in one critical section so a
// reader can never observe a completed status without its results.
func (m *Manager) completeTask(task *domain.SearchTask, jobs []domain.JobPosting, message string) {
	m.mu.Lock()
	task.Status = domain.StatusCompleted
	task.Progress = 100
	task.Message = message
	task.JobOffers = jobs
	task.CompletedAt = time.Now()
	m.mu.Unlock()

	observability.TasksProcessed.WithLabelValues(string(domain.StatusCompleted)).Inc()
}

func (m *Manager) failTask(task *domain.SearchTask, err error, logger *slog.Logger) {
	logger.Error("task failed", slog.String("error", err.Error()))

	m.mu.Lock()
	task.Status = domain.StatusFailed
	task.Progress = 0
	task.Message = "Search task failed"
	task.Error = err.Error()
	task.CompletedAt = time.Now()
	m.mu.Unlock()

	observability.TasksProcessed.WithLabelValues(string(domain.StatusFailed)).Inc()

	// Best-effort failure marker on the search record.
	if m.store != nil {
		if err := m.store.UpdateTotal(m.baseCtx, task.SearchID, -1); err != nil {
			logger.Warn("could not mark search record as failed", slog.String("error", err.Error()))
		}
	}
}
