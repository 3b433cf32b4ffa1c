package domain

import (
	"errors"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source identifiers for the configured job boards.
const (
	SourceAdzuna     = "adzuna"
	SourceHeadHunter = "headhunter"
)

// UserCriteria is what the user asked for. Immutable once a task exists.
type UserCriteria struct {
	JobTitle string `json:"jobTitle"`
	Location string `json:"location"`
	Skills   string `json:"skills"` // comma-separated
	Salary   string `json:"salary"`
}

// ScrapeCriteria is the subset of UserCriteria the job boards understand.
type ScrapeCriteria struct {
	JobTitle string
	Location string
}

func (c UserCriteria) ScrapeCriteria() ScrapeCriteria {
	return ScrapeCriteria{JobTitle: c.JobTitle, Location: c.Location}
}

// JobPosting is one scraped job offer. URL is the dedup key.
type JobPosting struct {
	ExternalID  string `json:"-"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Score       int    `json:"score"`
}

// SearchTask is one user search request's end-to-end execution unit.
// Only the queue processor mutates a task between pending and a terminal
// state; afterwards it is read-only until cleanup evicts it.
type SearchTask struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	SearchID    string       `json:"searchId"`
	Status      TaskStatus   `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message"`
	Criteria    UserCriteria `json:"criteria"`
	JobOffers   []JobPosting `json:"jobOffers,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt time.Time    `json:"completedAt,omitzero"`
}

// SearchRecord mirrors a job_searches row. TotalJobs is nil until the task
// finishes; -1 marks a failed search.
type SearchRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	JobTitle  string    `json:"jobTitle"`
	Location  string    `json:"location"`
	Skills    string    `json:"skills"`
	Salary    string    `json:"salary"`
	TotalJobs *int      `json:"totalJobs"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateSearchResponse struct {
	TaskID   string `json:"taskId"`
	SearchID string `json:"searchId"`
}

type StatusResponse struct {
	ID          string     `json:"id"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type ResultsResponse struct {
	Jobs []JobPosting `json:"jobs"`
}

type SearchListResponse struct {
	Searches []SearchRecord `json:"searches"`
}

type StatsResponse struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Processing  int `json:"processing"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	QueueLength int `json:"queueLength"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskNotReady = errors.New("task not ready")
	ErrTaskFailed   = errors.New("task failed")
)
