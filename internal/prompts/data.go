package prompts

// Template names and variants
const (
	Interviewer     = "interviewer"
	Scoring         = "scoring"
	Resume          = "resume"
	VariantOpening  = "opening"
	VariantFollowUp = "followup"
	VariantDefault  = "default"
)

// InterviewContext feeds the interviewer system prompt.
type InterviewContext struct {
	CandidateName  string
	JobTitle       string
	CompanyName    string
	JobDescription string
	ResumeSummary  string
	CoverLetter    string
}

type FollowUpData struct {
	History          string
	LatestAnswer     string
	SecondsRemaining int
	TimeGuidance     string
}

type ScoringData struct {
	JobTitle       string
	JobDescription string
	Transcript     string
}

type ResumeData struct {
	CandidateName string
	JobTitle      string
	ResumeText    string
}
