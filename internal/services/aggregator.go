package services

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/llm"
	"github.com/Lllllllleong/rfpsynth/internal/models"
)

// SampleQuestionCount bounds how many pooled questions go into the context summary.
const SampleQuestionCount = 10

// ContextSummary is the knowledge handed to every generation call.
type ContextSummary struct {
	SourceDocumentCount  int      `json:"source_document_count"`
	SampleQuestions      []string `json:"sample_questions"`
	TotalUniqueQuestions int      `json:"total_unique_questions"`
	Categories           []string `json:"categories"`
	SourceSummaries      []string `json:"source_summaries"`
}

// AggregateQuestions pools the questions of every successful
// categorized-requirements result, drops exact duplicates and sorts the
// rest. Differently phrased questions stay separate.
func AggregateQuestions(results []models.ExtractionResult) []string {
	seen := map[string]struct{}{}
	for _, result := range results {
		if result.Failed() || result.Prompt != llm.PromptCategorizedRequirements {
			continue
		}
		for _, category := range result.Requirements {
			for _, question := range category.Questions {
				if strings.TrimSpace(question) == "" {
					continue
				}
				seen[question] = struct{}{}
			}
		}
	}

	pool := make([]string, 0, len(seen))
	for question := range seen {
		pool = append(pool, question)
	}
	sort.Strings(pool)
	return pool
}

// BuildContextSummary serializes the document count, the first
// SampleQuestionCount pooled questions and supporting detail from the
// extraction results.
func BuildContextSummary(docCount int, pool []string, results []models.ExtractionResult) (string, error) {
	sample := pool
	if len(sample) > SampleQuestionCount {
		sample = sample[:SampleQuestionCount]
	}

	summary := ContextSummary{
		SourceDocumentCount:  docCount,
		SampleQuestions:      append([]string{}, sample...),
		TotalUniqueQuestions: len(pool),
		Categories:           categoryNames(results),
		SourceSummaries:      []string{},
	}
	for _, result := range results {
		if result.Failed() || result.Prompt != llm.PromptSummary {
			continue
		}
		if s := strings.TrimSpace(result.StringField("summary")); s != "" {
			summary.SourceSummaries = append(summary.SourceSummaries, s)
		}
	}

	out, err := json.Marshal(summary)
	if err != nil {
		return "", errors.Wrap(err, "marshal context summary")
	}
	return string(out), nil
}

func categoryNames(results []models.ExtractionResult) []string {
	seen := map[string]struct{}{}
	for _, result := range results {
		if result.Failed() {
			continue
		}
		for _, category := range result.Requirements {
			if name := strings.TrimSpace(category.CategoryName); name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
