package scoring

import (
	"fmt"
	"sort"
	"strings"

	"aptiview/interview/internal/models"
	"aptiview/interview/internal/proctoring"
)

// ScoreFloor is the lowest score a deduction can produce.
const ScoreFloor = 1

type deductionRule struct {
	eventsPerPoint int
	maxPoints      int
}

var deductionRules = map[string]deductionRule{
	models.ProctorMultipleFaces: {eventsPerPoint: 1, maxPoints: 3},
	models.ProctorGazeOffScreen: {eventsPerPoint: 3, maxPoints: 2},
}

var defaultRule = deductionRule{eventsPerPoint: 5, maxPoints: 1}

// DeductionPoints is the total penalty for a set of events, capped per kind.
func DeductionPoints(counts map[string]int) int {
	total := 0
	for kind, n := range counts {
		rule, ok := deductionRules[kind]
		if !ok {
			rule = defaultRule
		}
		total += min(n/rule.eventsPerPoint, rule.maxPoints)
	}
	return total
}

// ApplyDeductions lowers communication and cultural fit for proctoring events and appends a
// disclosure note. It is a no-op without events or when already applied. Returns the points deducted.
func ApplyDeductions(summary *models.ScoredSummary, events []models.ProctorEvent) int {
	if summary == nil || summary.DeductionsApplied || len(events) == 0 {
		return 0
	}

	counts := proctoring.CountByKind(events)
	points := DeductionPoints(counts)

	summary.Scores.Communication = deduct(summary.Scores.Communication, points)
	summary.Scores.CulturalFit = deduct(summary.Scores.CulturalFit, points)
	summary.ProctorViolations = len(events)
	summary.DeductionsApplied = true
	summary.Summary = strings.TrimSpace(summary.Summary + "\n\n" + disclosure(counts, len(events), points))
	return points
}

func deduct(score, points int) int {
	if score <= ScoreFloor {
		return score
	}
	return max(ScoreFloor, score-points)
}

func disclosure(counts map[string]int, total, points int) string {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = fmt.Sprintf("%d %s", counts[kind], kind)
	}

	note := fmt.Sprintf("Proctoring note: %d integrity event(s) were flagged during this interview (%s).",
		total, strings.Join(parts, ", "))
	if points > 0 {
		return note + fmt.Sprintf(" Communication and cultural fit scores were reduced by %d point(s).", points)
	}
	return note + " No score adjustment was applied."
}
