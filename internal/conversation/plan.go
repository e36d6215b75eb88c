package conversation

import (
	"fmt"
	"strings"
)

// closingPrompts are always the last two scripted questions.
var closingPrompts = []string{
	"Before we wrap up, is there anything about your experience we haven't covered that you'd like to share?",
	"Do you have any questions for me about the role or the company?",
}

// QuestionPlan is the fixed script: greeting, seed questions, custom questions, closing prompts.
type QuestionPlan struct {
	questions    []string
	closingIndex int
}

func NewQuestionPlan(candidateName, jobTitle string, minutes int, custom []string) *QuestionPlan {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = "there"
	}
	role := strings.TrimSpace(jobTitle)
	if role == "" {
		role = "open"
	}

	questions := []string{
		fmt.Sprintf("Hello %s, welcome to your interview for the %s position. I'm your AI interviewer today, "+
			"and we have about %d minutes together. To start, could you please introduce yourself and tell me a little about your background?",
			name, role, minutes),
		fmt.Sprintf("What interests you about this %s role, and why do you think you'd be a good fit?", role),
		"Tell me about a challenging project you worked on recently. What was your role, and how did you handle the difficulties?",
		"Describe a time you had to learn a new skill or technology quickly. How did you approach it?",
		"Tell me about a time you disagreed with a teammate or worked with someone difficult. How did you resolve it?",
	}
	for _, q := range custom {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	closingIndex := len(questions)
	questions = append(questions, closingPrompts...)

	return &QuestionPlan{questions: questions, closingIndex: closingIndex}
}

func (p *QuestionPlan) Len() int {
	return len(p.questions)
}

func (p *QuestionPlan) At(i int) string {
	return p.questions[i]
}

// ClosingIndex is the index of the first closing prompt.
func (p *QuestionPlan) ClosingIndex() int {
	return p.closingIndex
}

func (p *QuestionPlan) Questions() []string {
	return append([]string(nil), p.questions...)
}
