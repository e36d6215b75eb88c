package scoring

import (
	"errors"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"aptiview/interview/internal/models"
	"aptiview/interview/internal/utils"
)

var recommendationAliases = map[string]string{
	"strong hire":    models.RecommendationStrongHire,
	"strongly hire":  models.RecommendationStrongHire,
	"strong yes":     models.RecommendationStrongHire,
	"hire":           models.RecommendationHire,
	"yes":            models.RecommendationHire,
	"maybe":          models.RecommendationMaybe,
	"lean hire":      models.RecommendationMaybe,
	"lean no hire":   models.RecommendationMaybe,
	"borderline":     models.RecommendationMaybe,
	"no hire":        models.RecommendationNoHire,
	"strong no hire": models.RecommendationNoHire,
	"do not hire":    models.RecommendationNoHire,
	"no":             models.RecommendationNoHire,
	"reject":         models.RecommendationNoHire,
	"needs review":   models.RecommendationNeedsReview,
}

// NormalizeRecommendation maps free-form labels onto the four canonical ones. Unknown labels become Maybe.
func NormalizeRecommendation(label string) string {
	key := strings.Trim(utils.NormalizeLabel(strings.ReplaceAll(label, "_", " ")), ".!")
	if canonical, ok := recommendationAliases[key]; ok {
		return canonical
	}
	return models.RecommendationMaybe
}

// ShouldProceed is true only for the two positive hire labels.
func ShouldProceed(recommendation string) bool {
	switch NormalizeRecommendation(recommendation) {
	case models.RecommendationStrongHire, models.RecommendationHire:
		return true
	}
	return false
}

// Fallback is the neutral result used when the completion service gives nothing usable.
func Fallback() *models.ScoredSummary {
	return &models.ScoredSummary{
		Summary:        "An automated assessment could not be generated for this interview. Please review the transcript manually.",
		Strengths:      []string{},
		Weaknesses:     []string{},
		Recommendation: models.RecommendationNeedsReview,
		ShouldProceed:  false,
		Fallback:       true,
	}
}

// Parse reads the model's JSON assessment. Markdown fences and surrounding prose are tolerated.
func Parse(raw string) (*models.ScoredSummary, error) {
	body := extractObject(utils.StripFences(raw))
	if body == "" || !gjson.Valid(body) {
		return nil, errors.New("response is not a JSON object")
	}

	doc := gjson.Parse(body)
	scores := doc.Get("scores")
	if !scores.IsObject() {
		return nil, errors.New("response has no scores object")
	}

	summary := &models.ScoredSummary{
		Summary: strings.TrimSpace(doc.Get("summary").String()),
		Scores: models.Scores{
			Communication:  clampScore(scores.Get("communication")),
			Technical:      clampScore(scores.Get("technical")),
			ProblemSolving: clampScore(scores.Get("problemSolving")),
			CulturalFit:    clampScore(scores.Get("culturalFit")),
		},
		Strengths:      stringList(doc.Get("strengths")),
		Weaknesses:     stringList(doc.Get("weaknesses")),
		Recommendation: NormalizeRecommendation(doc.Get("recommendation").String()),
	}
	// the model's own shouldProceed is ignored
	summary.ShouldProceed = ShouldProceed(summary.Recommendation)
	return summary, nil
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func clampScore(v gjson.Result) int {
	n := int(math.Round(v.Float()))
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

func stringList(v gjson.Result) []string {
	out := []string{}
	if v.IsArray() {
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := strings.TrimSpace(v.String()); s != "" {
		out = append(out, s)
	}
	return out
}
