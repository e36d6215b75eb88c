// Package heuristics holds the small pattern classifiers used on transcripts and replies.
// Each classifier is an ordered list of named predicates; the first match wins.
package heuristics

// Predicate is a named yes/no test over an input.
type Predicate[T any] struct {
	Name  string
	Match func(T) bool
}

// Classifier evaluates predicates in order.
type Classifier[T any] struct {
	predicates []Predicate[T]
}

func NewClassifier[T any](predicates ...Predicate[T]) *Classifier[T] {
	return &Classifier[T]{predicates: predicates}
}

// Classify returns the name of the first matching predicate.
func (c *Classifier[T]) Classify(input T) (string, bool) {
	for _, p := range c.predicates {
		if p.Match(input) {
			return p.Name, true
		}
	}
	return "", false
}

func (c *Classifier[T]) Names() []string {
	names := make([]string, len(c.predicates))
	for i, p := range c.predicates {
		names[i] = p.Name
	}
	return names
}
