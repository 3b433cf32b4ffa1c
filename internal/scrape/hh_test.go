package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

func TestHHSource_ListAndDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"), "hh.ru requires a User-Agent")

		switch r.URL.Path {
		case "/vacancies":
			assert.Contains(t, r.URL.Query().Get("text"), "Go Developer")
			fmt.Fprint(w, `{"found":2,"items":[
				{"id":"101","name":"Go Developer","employer":{"name":"Acme"},"area":{"name":"Moscow"},"alternate_url":"https://hh.ru/vacancy/101"},
				{"id":"102","name":"No URL","employer":{"name":"Ghost"},"area":{"name":""},"alternate_url":""}
			]}`)
		case "/vacancies/101":
			fmt.Fprint(w, `{"description":"<p>Build <strong>services</strong> in Go.</p>"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHHSource(srv.URL)
	ctx := context.Background()

	jobs, err := src.List(ctx, domain.ScrapeCriteria{JobTitle: "Go Developer", Location: "Moscow"}, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1, "postings without a public URL are dropped")
	assert.Equal(t, "101", jobs[0].ExternalID)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Empty(t, jobs[0].Description, "search endpoint returns no full description")

	desc, err := src.Describe(ctx, jobs[0])
	require.NoError(t, err)
	assert.Equal(t, "Build services in Go.", desc)
}

func TestHHSource_DescribeRequiresVacancyID(t *testing.T) {
	src := NewHHSource("http://unused.invalid")

	_, err := src.Describe(context.Background(), domain.JobPosting{URL: "https://hh.ru/vacancy/1"})

	assert.Error(t, err)
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<ul><li>Go</li><li>SQL</li></ul>", "Go SQL"},
		{"A&nbsp;&amp;&nbsp;B", "A & B"},
		{"  plain   text  ", "plain text"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripTags(tt.in), "input %q", tt.in)
	}
}
