// Package rank scores postings against the user's criteria on a 0–100 scale.
package rank

import (
	"context"
	"strings"

	"github.com/svensoldin/job-curator-mono/internal/domain"
)

// RuleBased ranks postings with keyword heuristics: skills are worth 40
// points, experience level 30 and location/remote fit 30.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Rank(ctx context.Context, jobs []domain.JobPosting, criteria domain.UserCriteria) ([]domain.JobPosting, error) {
	skills := splitSkills(criteria.Skills)
	level := inferLevel(criteria.JobTitle)

	ranked := make([]domain.JobPosting, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job.Score = scoreSkills(job, skills) + scoreLevel(job, level) + scoreLocation(job, criteria)
		if job.Score > 100 {
			job.Score = 100
		}
		ranked[i] = job
	}

	return ranked, nil
}

func splitSkills(s string) []string {
	var skills []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			skills = append(skills, strings.ToLower(part))
		}
	}
	return skills
}

// skillVariations maps a skill to the spellings job postings actually use.
var skillVariations = map[string][]string{
	"react":      {"reactjs", "react.js"},
	"vue":        {"vuejs", "vue.js"},
	"angular":    {"angularjs"},
	"node":       {"nodejs", "node.js"},
	"typescript": {"ts"},
	"javascript": {"js", "es6", "es2015"},
	"python":     {"py"},
	"golang":     {"go "},
	"docker":     {"containerization"},
	"kubernetes": {"k8s"},
	"aws":        {"amazon web services"},
}

func scoreSkills(job domain.JobPosting, skills []string) int {
	if len(skills) == 0 {
		return 15
	}

	jobText := strings.ToLower(job.Title + " " + job.Description)
	matched := 0
	for _, skill := range skills {
		terms := append([]string{skill}, skillVariations[skill]...)
		for _, term := range terms {
			if strings.Contains(jobText, term) {
				matched++
				break
			}
		}
	}

	ratio := float64(matched) / float64(len(skills))
	switch {
	case ratio >= 0.8:
		return 40
	case ratio >= 0.6:
		return 30
	case ratio >= 0.3:
		return 20
	case matched > 0:
		return 10
	default:
		return 0
	}
}

var levelTerms = map[string][]string{
	"junior": {"junior", "entry", "graduate", "0-2 years", "new grad", "trainee"},
	"mid":    {"mid", "intermediate", "2-5 years", "3-5 years", "experienced"},
	"senior": {"senior", "lead", "5+ years", "7+ years", "expert", "principal", "architect"},
}

// inferLevel guesses the seniority the user is after from their job title.
func inferLevel(jobTitle string) string {
	title := strings.ToLower(jobTitle)
	for level, terms := range levelTerms {
		for _, term := range terms {
			if strings.Contains(title, term) {
				return level
			}
		}
	}
	return ""
}

func scoreLevel(job domain.JobPosting, level string) int {
	if level == "" {
		return 15
	}

	jobText := strings.ToLower(job.Title + " " + job.Description)
	for _, term := range levelTerms[level] {
		if strings.Contains(jobText, term) {
			return 30
		}
	}

	for other, terms := range levelTerms {
		if other == level {
			continue
		}
		for _, term := range terms {
			if strings.Contains(jobText, term) {
				return 5
			}
		}
	}

	return 15
}

var remoteTerms = []string{"remote", "work from home", "wfh", "distributed", "anywhere", "télétravail", "hybrid"}

func scoreLocation(job domain.JobPosting, criteria domain.UserCriteria) int {
	jobText := strings.ToLower(job.Title + " " + job.Description + " " + job.Location)

	score := 15
	for _, term := range remoteTerms {
		if strings.Contains(jobText, term) {
			score = 30
			break
		}
	}

	if loc := strings.ToLower(strings.TrimSpace(criteria.Location)); loc != "" && strings.Contains(jobText, loc) {
		if score < 25 {
			score = 25
		}
	}

	return score
}
