// Package resultstore persists ranked results and the parent search records.
package resultstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateSearch inserts a job_searches row and returns its id.
func (s *PostgresStore) CreateSearch(ctx context.Context, userID string, criteria domain.UserCriteria) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO job_searches (user_id, job_title, location, skills, salary)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, criteria.JobTitle, criteria.Location, criteria.Skills, criteria.Salary,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert job_searches: %w", err)
	}

	return id, nil
}

// SaveResults writes the ranked postings for a search in one batch.
func (s *PostgresStore) SaveResults(ctx context.Context, searchID string, jobs []domain.JobPosting) error {
	if len(jobs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, job := range jobs {
		batch.Queue(
			`INSERT INTO job_results (search_id, title, company, location, description, url, source, ai_score)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			searchID, job.Title, job.Company, job.Location, job.Description, job.URL, job.Source, job.Score,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range jobs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert job_results: %w", err)
		}
	}

	return nil
}

// UpdateTotal mirrors the result count onto the parent search record.
// A total of -1 marks the search as failed.
func (s *PostgresStore) UpdateTotal(ctx context.Context, searchID string, total int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_searches SET total_jobs = $2 WHERE id = $1`,
		searchID, total,
	)
	if err != nil {
		return fmt.Errorf("update job_searches: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search %s not found", searchID)
	}

	return nil
}

// SearchesByUser lists all of a user's search records.
func (s *PostgresStore) SearchesByUser(ctx context.Context, userID string) ([]domain.SearchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, job_title, location, skills, salary, total_jobs, created_at
		 FROM job_searches
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query job_searches: %w", err)
	}
	defer rows.Close()

	var records []domain.SearchRecord
	for rows.Next() {
		var r domain.SearchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.JobTitle, &r.Location, &r.Skills, &r.Salary, &r.TotalJobs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
