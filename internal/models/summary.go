package models

// Scores are per-category ratings on a 1-10 scale (0 only in the fallback result).
type Scores struct {
	Communication  int `json:"communication"`
	Technical      int `json:"technical"`
	ProblemSolving int `json:"problemSolving"`
	CulturalFit    int `json:"culturalFit"`
}

// Overall is the mean of the four categories.
func (s Scores) Overall() float64 {
	return float64(s.Communication+s.Technical+s.ProblemSolving+s.CulturalFit) / 4
}

// ScoredSummary is the structured assessment produced at finalization.
type ScoredSummary struct {
	Summary           string   `json:"summary"`
	Scores            Scores   `json:"scores"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Recommendation    string   `json:"recommendation"`
	ShouldProceed     bool     `json:"shouldProceed"`
	ProctorViolations int      `json:"proctorViolations,omitempty"`
	DeductionsApplied bool     `json:"-"`
	Fallback          bool     `json:"-"`
}

const (
	RecommendationStrongHire  = "Strong Hire"
	RecommendationHire        = "Hire"
	RecommendationMaybe       = "Maybe"
	RecommendationNoHire      = "No Hire"
	RecommendationNeedsReview = "Needs Review"
)
