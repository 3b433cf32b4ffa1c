package usecase

import (
	"context"
	"fmt"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

type TaskManager interface {
	CreateTask(criteria domain.UserCriteria, userID, searchID string) string
	GetTask(id string) (domain.SearchTask, bool)
	Stats() domain.StatsResponse
}

type SearchStore interface {
	CreateSearch(ctx context.Context, userID string, criteria domain.UserCriteria) (string, error)
	SearchesByUser(ctx context.Context, userID string) ([]domain.SearchRecord, error)
}

type usecase struct {
	manager  TaskManager
	searches SearchStore
}

func New(manager TaskManager, searches SearchStore) *usecase {
	return &usecase{manager: manager, searches: searches}
}

// StartSearch creates the durable search record, then enqueues the task.
// Unlike the pipeline's best-effort persistence, this insert must succeed:
// without a search record there is nothing to attach results to.
func (uc *usecase) StartSearch(ctx context.Context, userID string, criteria domain.UserCriteria) (domain.CreateSearchResponse, error) {
	searchID, err := uc.searches.CreateSearch(ctx, userID, criteria)
	if err != nil {
		return domain.CreateSearchResponse{}, fmt.Errorf("create search record: %w", err)
	}

	taskID := uc.manager.CreateTask(criteria, userID, searchID)

	return domain.CreateSearchResponse{TaskID: taskID, SearchID: searchID}, nil
}

func (uc *usecase) GetStatus(ctx context.Context, taskID string) (domain.StatusResponse, error) {
	task, ok := uc.manager.GetTask(taskID)
	if !ok {
		return domain.StatusResponse{}, domain.ErrTaskNotFound
	}

	resp := domain.StatusResponse{
		ID:        task.ID,
		Status:    task.Status,
		Progress:  task.Progress,
		Message:   task.Message,
		CreatedAt: task.CreatedAt,
	}
	if task.Status == domain.StatusFailed {
		resp.Error = task.Error
	}
	if !task.CompletedAt.IsZero() {
		completed := task.CompletedAt
		resp.CompletedAt = &completed
	}

	return resp, nil
}

func (uc *usecase) GetResults(ctx context.Context, taskID string) (domain.ResultsResponse, error) {
	task, ok := uc.manager.GetTask(taskID)
	if !ok {
		return domain.ResultsResponse{}, domain.ErrTaskNotFound
	}

	switch task.Status {
	case domain.StatusCompleted:
		jobs := task.JobOffers
		if jobs == nil {
			jobs = []domain.JobPosting{}
		}
		return domain.ResultsResponse{Jobs: jobs}, nil

	case domain.StatusFailed:
		return domain.ResultsResponse{}, fmt.Errorf("%w: %s", domain.ErrTaskFailed, task.Error)

	default:
		return domain.ResultsResponse{}, domain.ErrTaskNotReady
	}
}

// ListSearches returns the user's durable search records, newest first.
// Unlike task lookups this reads the database, not the in-memory registry,
// so searches survive restarts and task cleanup.
func (uc *usecase) ListSearches(ctx context.Context, userID string) (domain.SearchListResponse, error) {
	records, err := uc.searches.SearchesByUser(ctx, userID)
	if err != nil {
		return domain.SearchListResponse{}, fmt.Errorf("list searches: %w", err)
	}
	if records == nil {
		records = []domain.SearchRecord{}
	}

	return domain.SearchListResponse{Searches: records}, nil
}

func (uc *usecase) GetStats(ctx context.Context) domain.StatsResponse {
	return uc.manager.Stats()
}
