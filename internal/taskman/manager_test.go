package taskman

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

type fakeScraper struct {
	fn func(ctx context.Context, criteria domain.ScrapeCriteria) ([]domain.JobPosting, error)
}

func (f *fakeScraper) Scrape(ctx context.Context, criteria domain.ScrapeCriteria) ([]domain.JobPosting, error) {
	return f.fn(ctx, criteria)
}

type fakeRanker struct {
	called bool
	fn     func(jobs []domain.JobPosting, criteria domain.UserCriteria) ([]domain.JobPosting, error)
}

func (f *fakeRanker) Rank(ctx context.Context, jobs []domain.JobPosting, criteria domain.UserCriteria) ([]domain.JobPosting, error) {
	f.called = true
	if f.fn == nil {
		return jobs, nil
	}
	return f.fn(jobs, criteria)
}

type fakeStore struct {
	mu       sync.Mutex
	saved    map[string][]domain.JobPosting
	totals   map[string]int
	saveErr  error
	totalErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:  make(map[string][]domain.JobPosting),
		totals: make(map[string]int),
	}
}

func (f *fakeStore) SaveResults(_ context.Context, searchID string, jobs []domain.JobPosting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[searchID] = jobs
	return nil
}

func (f *fakeStore) UpdateTotal(_ context.Context, searchID string, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.totalErr != nil {
		return f.totalErr
	}
	f.totals[searchID] = total
	return nil
}

func (f *fakeStore) total(searchID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.totals[searchID]
	return v, ok
}

func scoredPostings(scores ...int) []domain.JobPosting {
	out := make([]domain.JobPosting, 0, len(scores))
	for i, s := range scores {
		out = append(out, domain.JobPosting{
			URL:   "https://example.com/" + string(rune('a'+i)),
			Title: "job",
			Score: s,
		})
	}
	return out
}

func newTestManager(scraper Scraper, ranker Ranker, store ResultStore) *Manager {
	return New(context.Background(), Config{MaxResults: 50, Retention: time.Hour}, scraper, ranker, store)
}

func waitTerminal(t *testing.T, m *Manager, id string) domain.SearchTask {
	t.Helper()
	require.Eventually(t, func() bool {
		task, ok := m.GetTask(id)
		return ok && task.Status.Terminal()
	}, 2*time.Second, 2*time.Millisecond, "task %s never reached a terminal state", id)

	task, _ := m.GetTask(id)
	return task
}

func TestCreateTask_ImmediatelyRetrievablePending(t *testing.T) {
	release := make(chan struct{})
	scraper := &fakeScraper{fn: func(ctx context.Context, _ domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		<-release
		return nil, nil
	}}
	m := newTestManager(scraper, &fakeRanker{}, newFakeStore())
	defer close(release)

	first := m.CreateTask(domain.UserCriteria{JobTitle: "a"}, "user", "s1")
	second := m.CreateTask(domain.UserCriteria{JobTitle: "b"}, "user", "s2")

	// The processor is blocked on the first task, so the second must still
	// be pending exactly as created.
	task, ok := m.GetTask(second)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Empty(t, task.JobOffers)
	assert.False(t, task.CreatedAt.IsZero())

	_, ok = m.GetTask(first)
	assert.True(t, ok)
}

func TestTasks_ProcessedInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	scraper := &fakeScraper{fn: func(_ context.Context, criteria domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		mu.Lock()
		order = append(order, criteria.JobTitle)
		mu.Unlock()
		return nil, nil
	}}
	m := newTestManager(scraper, &fakeRanker{}, newFakeStore())

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		ids = append(ids, m.CreateTask(domain.UserCriteria{JobTitle: title}, "user", "s"))
	}
	for _, id := range ids {
		waitTerminal(t, m, id)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestZeroResults_CompletesNotFails(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return nil, nil
	}}
	ranker := &fakeRanker{}
	m := newTestManager(scraper, ranker, newFakeStore())

	id := m.CreateTask(domain.UserCriteria{JobTitle: "unicorn wrangler"}, "user", "s")
	task := waitTerminal(t, m, id)

	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.NotNil(t, task.JobOffers)
	assert.Empty(t, task.JobOffers)
	assert.False(t, task.CompletedAt.IsZero())
	assert.False(t, ranker.called, "ranker must not run for zero postings")
}

func TestResults_SortedByScoreDescending(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return scoredPostings(0, 0, 0), nil
	}}
	ranker := &fakeRanker{fn: func(jobs []domain.JobPosting, _ domain.UserCriteria) ([]domain.JobPosting, error) {
		for i, score := range []int{30, 90, 60} {
			jobs[i].Score = score
		}
		return jobs, nil
	}}
	m := newTestManager(scraper, ranker, newFakeStore())

	id := m.CreateTask(domain.UserCriteria{}, "user", "s")
	task := waitTerminal(t, m, id)

	require.Equal(t, domain.StatusCompleted, task.Status)
	require.Len(t, task.JobOffers, 3)
	assert.Equal(t, []int{90, 60, 30}, []int{
		task.JobOffers[0].Score, task.JobOffers[1].Score, task.JobOffers[2].Score,
	})
}

func TestResults_TruncatedToMaxResults(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return scoredPostings(10, 20, 30, 40, 50), nil
	}}
	m := New(context.Background(), Config{MaxResults: 2, Retention: time.Hour},
		scraper, &fakeRanker{}, newFakeStore())

	id := m.CreateTask(domain.UserCriteria{}, "user", "s")
	task := waitTerminal(t, m, id)

	require.Equal(t, domain.StatusCompleted, task.Status)
	require.Len(t, task.JobOffers, 2)
	assert.Equal(t, 50, task.JobOffers[0].Score)
	assert.Equal(t, 40, task.JobOffers[1].Score)
}

func TestPersistenceFailure_TaskStillCompletes(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return scoredPostings(80, 70), nil
	}}
	store := newFakeStore()
	store.saveErr = errors.New("db is down")
	store.totalErr = errors.New("db is down")
	m := newTestManager(scraper, &fakeRanker{}, store)

	id := m.CreateTask(domain.UserCriteria{}, "user", "s")
	task := waitTerminal(t, m, id)

	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Len(t, task.JobOffers, 2)
	assert.Empty(t, task.Error)
}

func TestRankerFatal_TaskFailsQueueContinues(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return scoredPostings(1), nil
	}}
	calls := 0
	ranker := &fakeRanker{fn: func(jobs []domain.JobPosting, _ domain.UserCriteria) ([]domain.JobPosting, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("ranker unreachable")
		}
		return jobs, nil
	}}
	store := newFakeStore()
	m := newTestManager(scraper, ranker, store)

	failed := m.CreateTask(domain.UserCriteria{}, "user", "s-fail")
	ok := m.CreateTask(domain.UserCriteria{}, "user", "s-ok")

	failedTask := waitTerminal(t, m, failed)
	okTask := waitTerminal(t, m, ok)

	assert.Equal(t, domain.StatusFailed, failedTask.Status)
	assert.Equal(t, 0, failedTask.Progress)
	assert.Contains(t, failedTask.Error, "ranker unreachable")
	assert.Empty(t, failedTask.JobOffers)
	assert.False(t, failedTask.CompletedAt.IsZero())

	// Failure marker mirrored onto the search record.
	total, present := store.total("s-fail")
	assert.True(t, present)
	assert.Equal(t, -1, total)

	assert.Equal(t, domain.StatusCompleted, okTask.Status)
}

func TestScraperPanic_TaskFailsQueueContinues(t *testing.T) {
	calls := 0
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		calls++
		if calls == 1 {
			panic("selector exploded")
		}
		return nil, nil
	}}
	m := newTestManager(scraper, &fakeRanker{}, newFakeStore())

	failed := m.CreateTask(domain.UserCriteria{}, "user", "s1")
	ok := m.CreateTask(domain.UserCriteria{}, "user", "s2")

	failedTask := waitTerminal(t, m, failed)
	okTask := waitTerminal(t, m, ok)

	assert.Equal(t, domain.StatusFailed, failedTask.Status)
	assert.Contains(t, failedTask.Error, "selector exploded")
	assert.Equal(t, domain.StatusCompleted, okTask.Status)
}

func TestTerminalTask_SnapshotIsStable(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return scoredPostings(42), nil
	}}
	m := newTestManager(scraper, &fakeRanker{}, newFakeStore())

	id := m.CreateTask(domain.UserCriteria{}, "user", "s")
	first := waitTerminal(t, m, id)

	time.Sleep(20 * time.Millisecond)
	second, ok := m.GetTask(id)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestStats_CountsByStatus(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		calls++
		if calls == 1 {
			return scoredPostings(5), nil
		}
		<-release
		return nil, errors.New("boom")
	}}
	m := newTestManager(scraper, &fakeRanker{}, newFakeStore())

	done := m.CreateTask(domain.UserCriteria{}, "user", "s1")
	waitTerminal(t, m, done)

	m.CreateTask(domain.UserCriteria{}, "user", "s2") // blocks in scraper
	m.CreateTask(domain.UserCriteria{}, "user", "s3") // queued behind it

	require.Eventually(t, func() bool {
		return m.Stats().Processing == 1
	}, 2*time.Second, 2*time.Millisecond)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Processing)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.QueueLength)

	close(release)
}

func TestCleanup_EvictsOnlyOldFinishedTasks(t *testing.T) {
	scraper := &fakeScraper{fn: func(context.Context, domain.ScrapeCriteria) ([]domain.JobPosting, error) {
		return nil, nil
	}}
	m := New(context.Background(), Config{MaxResults: 50, Retention: 300 * time.Millisecond},
		scraper, &fakeRanker{}, newFakeStore())

	old := m.CreateTask(domain.UserCriteria{}, "user", "s-old")
	waitTerminal(t, m, old)

	time.Sleep(400 * time.Millisecond)

	fresh := m.CreateTask(domain.UserCriteria{}, "user", "s-fresh")
	waitTerminal(t, m, fresh)

	m.Cleanup()

	_, ok := m.GetTask(old)
	assert.False(t, ok, "task past retention must be evicted")
	_, ok = m.GetTask(fresh)
	assert.True(t, ok, "recently finished task must survive cleanup")
}
