package rank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

const mistralBaseURL = "https://api.mistral.ai"

// Mistral scores postings with the Mistral chat API. Postings are analyzed
// in small batches with a delay in between to stay under the rate limit; a
// single posting's failure degrades to a zero score. Only a fully
// unreachable API fails the whole batch.
type Mistral struct {
	BaseURL    string
	apiKey     string
	model      string
	batchSize  int
	batchDelay time.Duration
	client     *http.Client
}

func NewMistral(apiKey, model string, batchSize int, batchDelay time.Duration) *Mistral {
	if model == "" {
		model = "mistral-small-latest"
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Mistral{
		BaseURL:    mistralBaseURL,
		apiKey:     apiKey,
		model:      model,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *Mistral) Rank(ctx context.Context, jobs []domain.JobPosting, criteria domain.UserCriteria) ([]domain.JobPosting, error) {
	slog.Info("analyzing jobs with mistral", slog.Int("count", len(jobs)), slog.String("model", m.model))

	ranked := make([]domain.JobPosting, len(jobs))
	var mu sync.Mutex
	failures := 0

	for start := 0; start < len(jobs); start += m.batchSize {
		end := min(start+m.batchSize, len(jobs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				job := jobs[i]
				score, err := m.scoreJob(ctx, job, criteria)
				if err != nil {
					slog.Warn("job analysis failed, scoring 0",
						slog.String("title", job.Title),
						slog.String("error", err.Error()),
					)
					mu.Lock()
					failures++
					mu.Unlock()
					score = 0
				}
				job.Score = score
				ranked[i] = job
			}()
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if end < len(jobs) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.batchDelay):
			}
		}
	}

	if len(jobs) > 0 && failures == len(jobs) {
		return nil, fmt.Errorf("mistral ranking failed for all %d postings", len(jobs))
	}

	return ranked, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

var scoreRe = regexp.MustCompile(`(\d+)(?:/100)?`)

func (m *Mistral) scoreJob(ctx context.Context, job domain.JobPosting, criteria domain.UserCriteria) (int, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    m.model,
		Messages: []chatMessage{{Role: "user", Content: buildPrompt(criteria, job.Description)}},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("mistral returned %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return 0, fmt.Errorf("json unmarshal: %w", err)
	}
	if len(chat.Choices) == 0 {
		return 0, fmt.Errorf("empty choices in response")
	}

	return parseScore(chat.Choices[0].Message.Content), nil
}

// parseScore extracts a number from answers like "Score: 85/100" or "85".
// An unparseable answer counts as zero relevance.
func parseScore(answer string) int {
	match := scoreRe.FindStringSubmatch(strings.TrimSpace(answer))
	if match == nil {
		return 0
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func buildPrompt(c domain.UserCriteria, description string) string {
	skills := strings.Join(splitSkills(c.Skills), ", ")

	return fmt.Sprintf(`Evaluate how well this job posting fits the user's profile and give a score from 0-100.
User:

Title: %s

Skills: %s

Location: %s

Desired salary: %s
Job posting: %s
Consider:

Match between user's title and the role.

Alignment of required and preferred skills.

Location or remote compatibility.

Salary fit (even if not specified, infer from context).

Overall relevance to the user's background and experience level.

Output:
Score: X/100
`, c.JobTitle, skills, c.Location, c.Salary, description)
}
