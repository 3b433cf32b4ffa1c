// Package taskman owns the async search-task lifecycle: an in-memory task
// registry, a FIFO queue of pending task ids and the single queue processor
// that drives each task through scraping, ranking and persistence.
package taskman

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/svensoldin/job-curator-mono/internal/domain"
	"github.com/svensoldin/job-curator-mono/internal/observability"
)

// Scraper produces merged, deduplicated postings for the criteria.
type Scraper interface {
	Scrape(ctx context.Context, criteria domain.ScrapeCriteria) ([]domain.JobPosting, error)
}

// Ranker attaches a 0-100 relevance score to every posting.
type Ranker interface {
	Rank(ctx context.Context, jobs []domain.JobPosting, criteria domain.UserCriteria) ([]domain.JobPosting, error)
}

// ResultStore mirrors completed results into durable storage. The in-memory
// task stays authoritative; the store is best-effort.
type ResultStore interface {
	SaveResults(ctx context.Context, searchID string, jobs []domain.JobPosting) error
	UpdateTotal(ctx context.Context, searchID string, total int) error
}

type Config struct {
	// MaxResults caps the ranked result list.
	MaxResults int
	// Retention is how long finished tasks stay retrievable after completion.
	Retention time.Duration
}

// Manager is the public entry point for search tasks. All registry and
// queue state lives behind one mutex; the queue is drained by at most one
// processor goroutine at a time, guarded by the isProcessing flag.
type Manager struct {
	cfg     Config
	scraper Scraper
	ranker  Ranker
	store   ResultStore

	baseCtx context.Context

	mu           sync.Mutex
	tasks        map[string]*domain.SearchTask
	queue        []string
	isProcessing bool
}

func New(ctx context.Context, cfg Config, scraper Scraper, ranker Ranker, store ResultStore) *Manager {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}

	return &Manager{
		cfg:     cfg,
		scraper: scraper,
		ranker:  ranker,
		store:   store,
		baseCtx: ctx,
		tasks:   make(map[string]*domain.SearchTask),
	}
}

// CreateTask registers a pending task, queues it and kicks the processor if
// it is idle. It returns immediately; task execution is asynchronous.
func (m *Manager) CreateTask(criteria domain.UserCriteria, userID, searchID string) string {
	task := &domain.SearchTask{
		ID:        newTaskID(),
		UserID:    userID,
		SearchID:  searchID,
		Status:    domain.StatusPending,
		Progress:  0,
		Message:   "Search task queued",
		Criteria:  criteria,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.queue = append(m.queue, task.ID)
	start := !m.isProcessing
	if start {
		m.isProcessing = true
	}
	m.mu.Unlock()

	observability.TasksSubmitted.Inc()
	slog.Info("created search task",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
		slog.String("search_id", searchID),
		slog.String("job_title", criteria.JobTitle),
	)

	if start {
		go m.processQueue()
	}

	return task.ID
}

// GetTask returns a snapshot of the task. The advisory progress/message
// fields may lag a concurrent update; terminal fields never do.
func (m *Manager) GetTask(id string) (domain.SearchTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return domain.SearchTask{}, false
	}

	return *task, true
}

// Stats counts tasks by status plus the current queue length.
func (m *Manager) Stats() domain.StatsResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := domain.StatsResponse{
		Total:       len(m.tasks),
		QueueLength: len(m.queue),
	}
	for _, task := range m.tasks {
		switch task.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusProcessing:
			stats.Processing++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		}
	}

	return stats
}

// Cleanup evicts finished tasks older than the retention window.
func (m *Manager) Cleanup() {
	border := time.Now().Add(-m.cfg.Retention)

	m.mu.Lock()
	cleaned := 0
	for id, task := range m.tasks {
		if !task.CompletedAt.IsZero() && task.CompletedAt.Before(border) {
			delete(m.tasks, id)
			cleaned++
		}
	}
	m.mu.Unlock()

	if cleaned > 0 {
		slog.Info("cleaned up old search tasks", slog.Int("count", cleaned))
	}
}

// processQueue is the single-consumer drain loop. One task runs end to end
// before the next id is popped; the loop exits when the queue is empty and
// a later CreateTask starts a fresh one.
func (m *Manager) processQueue() {
	slog.Info("queue processor started")

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.isProcessing = false
			m.mu.Unlock()
			break
		}
		id := m.queue[0]
		m.queue = m.queue[1:]
		task := m.tasks[id]
		m.mu.Unlock()

		if task == nil {
			// Cleanup cannot evict queued tasks, so this indicates a bug.
			slog.Warn("queued task missing from registry", slog.String("task_id", id))
			continue
		}

		m.processTask(task)
	}

	slog.Info("queue processor finished")
}

func newTaskID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "search_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}
