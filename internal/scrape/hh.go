package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

// HHSource fetches job offers from the HeadHunter (hh.ru) public API.
// The search endpoint returns snippets only; the full description requires
// one detail call per vacancy, which the orchestrator paces.
type HHSource struct {
	BaseURL string
	client  *http.Client
}

func NewHHSource(baseURL string) *HHSource {
	if baseURL == "" {
		baseURL = "https://api.hh.ru"
	}
	return &HHSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HHSource) Name() string { return domain.SourceHeadHunter }

type hhSearchResponse struct {
	Items []hhVacancy `json:"items"`
	Found int         `json:"found"`
}

type hhVacancy struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Employer     hhEmployer `json:"employer"`
	Area         hhArea     `json:"area"`
	AlternateURL string     `json:"alternate_url"`
}

type hhEmployer struct {
	Name string `json:"name"`
}

type hhArea struct {
	Name string `json:"name"`
}

type hhVacancyDetail struct {
	Description string `json:"description"`
}

func (s *HHSource) List(ctx context.Context, criteria domain.ScrapeCriteria, limit int) ([]domain.JobPosting, error) {
	params := url.Values{}
	params.Set("text", strings.TrimSpace(criteria.JobTitle+" "+criteria.Location))
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "0")

	body, err := s.get(ctx, s.BaseURL+"/vacancies?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var apiResp hhSearchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]domain.JobPosting, 0, len(apiResp.Items))
	for _, v := range apiResp.Items {
		if v.AlternateURL == "" {
			continue
		}
		jobs = append(jobs, domain.JobPosting{
			ExternalID: v.ID,
			Title:      v.Name,
			Company:    v.Employer.Name,
			Location:   v.Area.Name,
			URL:        v.AlternateURL,
			Source:     domain.SourceHeadHunter,
		})
	}

	return jobs, nil
}

func (s *HHSource) Describe(ctx context.Context, job domain.JobPosting) (string, error) {
	if job.ExternalID == "" {
		return "", fmt.Errorf("posting has no vacancy id")
	}

	body, err := s.get(ctx, s.BaseURL+"/vacancies/"+url.PathEscape(job.ExternalID))
	if err != nil {
		return "", err
	}

	var detail hhVacancyDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return "", fmt.Errorf("json unmarshal: %w", err)
	}

	return stripTags(detail.Description), nil
}

func (s *HHSource) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	// hh.ru rejects requests without a User-Agent.
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
		return nil, fmt.Errorf("hh returned %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// stripTags flattens the HTML-formatted description the API returns into
// plain text for ranking and storage.
func stripTags(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
