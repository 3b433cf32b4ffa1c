package rank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

func newTestMistral(t *testing.T, handler http.HandlerFunc) *Mistral {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := NewMistral("test-key", "mistral-small-latest", 2, time.Millisecond)
	m.BaseURL = srv.URL
	return m
}

func chatAnswer(w http.ResponseWriter, answer string) {
	resp := chatResponse{}
	resp.Choices = append(resp.Choices, struct {
		Message chatMessage `json:"message"`
	}{Message: chatMessage{Role: "assistant", Content: answer}})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestMistral_ScoresFromResponses(t *testing.T) {
	m := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case strings.Contains(string(body), "great job"):
			chatAnswer(w, "Score: 85/100")
		default:
			chatAnswer(w, "40")
		}
	})

	jobs := []domain.JobPosting{
		{URL: "a", Description: "great job"},
		{URL: "b", Description: "ordinary job"},
		{URL: "c", Description: "another ordinary job"},
	}

	ranked, err := m.Rank(context.Background(), jobs, domain.UserCriteria{JobTitle: "dev"})
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}

	want := map[string]int{"a": 85, "b": 40, "c": 40}
	for _, job := range ranked {
		if job.Score != want[job.URL] {
			t.Errorf("score for %s = %d, want %d", job.URL, job.Score, want[job.URL])
		}
	}
}

func TestMistral_SingleFailureScoresZero(t *testing.T) {
	m := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "poisoned") {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		chatAnswer(w, "Score: 70/100")
	})

	jobs := []domain.JobPosting{
		{URL: "ok", Description: "fine"},
		{URL: "bad", Description: "poisoned"},
	}

	ranked, err := m.Rank(context.Background(), jobs, domain.UserCriteria{})
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	for _, job := range ranked {
		switch job.URL {
		case "ok":
			if job.Score != 70 {
				t.Errorf("score for ok = %d, want 70", job.Score)
			}
		case "bad":
			if job.Score != 0 {
				t.Errorf("score for bad = %d, want 0", job.Score)
			}
		}
	}
}

func TestMistral_AllFailuresIsFatal(t *testing.T) {
	m := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	jobs := []domain.JobPosting{{URL: "a"}, {URL: "b"}, {URL: "c"}}

	if _, err := m.Rank(context.Background(), jobs, domain.UserCriteria{}); err == nil {
		t.Fatal("Rank should fail when every posting's analysis fails")
	}
}

func TestMistral_EmptyInput(t *testing.T) {
	m := newTestMistral(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	ranked, err := m.Rank(context.Background(), nil, domain.UserCriteria{})
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("Rank returned %d postings, want 0", len(ranked))
	}
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		answer string
		want   int
	}{
		{"Score: 85/100", 85},
		{"85", 85},
		{"The score is 42 out of 100", 42},
		{"no number here", 0},
		{"Score: 250/100", 100},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseScore(c.answer); got != c.want {
			t.Errorf("parseScore(%q) = %d, want %d", c.answer, got, c.want)
		}
	}
}
