package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

const (
	adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"
	httpUserAgent = "job-curator/1.0"
)

// AdzunaSource fetches job offers from the Adzuna public API. The search
// response already carries the full description, so Describe is a no-op
// passthrough. If AppID or AppKey is empty, List returns nothing gracefully
// and the other sources carry the search.
type AdzunaSource struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	client  *http.Client
}

func NewAdzunaSource(appID, appKey, country string) *AdzunaSource {
	return &AdzunaSource{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *AdzunaSource) Name() string { return domain.SourceAdzuna }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
	RedirectURL string         `json:"redirect_url"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

func (s *AdzunaSource) List(ctx context.Context, criteria domain.ScrapeCriteria, limit int) ([]domain.JobPosting, error) {
	if s.AppID == "" || s.AppKey == "" {
		slog.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping adzuna")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/%s/search/1", adzunaBaseURL, s.Country)

	params := url.Values{}
	params.Set("app_id", s.AppID)
	params.Set("app_key", s.AppKey)
	params.Set("results_per_page", strconv.Itoa(limit))
	params.Set("what", criteria.JobTitle)
	params.Set("where", criteria.Location)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httpUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]domain.JobPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		if r.RedirectURL == "" {
			continue
		}
		jobs = append(jobs, domain.JobPosting{
			ExternalID:  r.ID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			URL:         r.RedirectURL,
			Description: r.Description,
			Source:      domain.SourceAdzuna,
		})
	}

	return jobs, nil
}

// Describe returns the description that already shipped with the search
// response; Adzuna has no separate detail endpoint.
func (s *AdzunaSource) Describe(ctx context.Context, job domain.JobPosting) (string, error) {
	return job.Description, nil
}
