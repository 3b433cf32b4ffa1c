package scrape

import "github.com/svensoldin/job-curator-mono/internal/domain"

// Dedup removes postings sharing a URL, keeping the first occurrence and
// preserving order. Running it on its own output is a no-op.
func Dedup(jobs []domain.JobPosting) []domain.JobPosting {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]domain.JobPosting, 0, len(jobs))

	for _, job := range jobs {
		if _, ok := seen[job.URL]; ok {
			continue
		}
		seen[job.URL] = struct{}{}
		out = append(out, job)
	}

	return out
}
