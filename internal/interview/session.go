package interview

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Evaluation is the feedback produced for one answered question.
type Evaluation struct {
	Rating         float64  `json:"rating" yaml:"rating"`
	Summary        string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Strengths      []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Improvements   []string `json:"improvements,omitempty" yaml:"improvements,omitempty"`
	Recommendation string   `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Raw            string   `json:"-" yaml:"-"`
}

// Spoken renders the evaluation as plain sentences suitable for speech synthesis.
func (e Evaluation) Spoken() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rating: %s out of 10.", strconv.FormatFloat(e.Rating, 'f', -1, 64))

	if s := strings.TrimSpace(e.Summary); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	if len(e.Strengths) > 0 {
		b.WriteString(" Strengths: ")
		b.WriteString(joinSentences(e.Strengths))
	}
	if len(e.Improvements) > 0 {
		b.WriteString(" Areas to improve: ")
		b.WriteString(joinSentences(e.Improvements))
	}
	if r := strings.TrimSpace(e.Recommendation); r != "" {
		b.WriteString(" Recommendation: ")
		b.WriteString(r)
	}

	return strings.TrimSpace(b.String())
}

func joinSentences(items []string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts = append(parts, strings.TrimSuffix(item, "."))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + "."
}

// Turn is one completed question, answer and evaluation cycle.
type Turn struct {
	Index      int        `json:"index" yaml:"index"`
	Question   string     `json:"question" yaml:"question"`
	Answer     string     `json:"answer" yaml:"answer"`
	Evaluation Evaluation `json:"evaluation" yaml:"evaluation"`
}

// Session holds the questions of one uploaded resume and the turns answered so far.
// Questions and context never change after New; the only transition is RecordAnswer.
type Session struct {
	ID        string
	CreatedAt time.Time

	questions []string
	context   string

	// mu guards answers and evaluations against readers running next to a turn.
	mu          sync.RWMutex
	answers     []string
	evaluations []Evaluation
}

// New creates a session positioned at the first question.
func New(id string, questions []string, context string) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}

	qs := make([]string, len(questions))
	copy(qs, questions)

	return &Session{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		questions:   qs,
		context:     context,
		answers:     make([]string, 0, len(qs)),
		evaluations: make([]Evaluation, 0, len(qs)),
	}, nil
}

// CurrentIndex is the position of the question awaiting an answer. Len() means complete.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers)
}

// Len returns the number of questions in the session.
func (s *Session) Len() int {
	return len(s.questions)
}

// Context is the resume summary the answers are evaluated against.
func (s *Session) Context() string {
	return s.context
}

// Questions returns a copy of all questions.
func (s *Session) Questions() []string {
	qs := make([]string, len(s.questions))
	copy(qs, s.questions)
	return qs
}

// IsComplete reports whether every question has an answer.
func (s *Session) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete()
}

// CurrentQuestion returns the question awaiting an answer, or ErrSessionComplete.
func (s *Session) CurrentQuestion() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.complete() {
		return "", ErrSessionComplete
	}
	return s.questions[len(s.answers)], nil
}

func (s *Session) complete() bool {
	return len(s.answers) == len(s.questions)
}

// RecordAnswer commits the answer and its evaluation for the current question
// and advances to the next one. Nothing is changed when an error is returned.
func (s *Session) RecordAnswer(answer string, evaluation Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete() {
		return ErrSessionComplete
	}
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}

	s.answers = append(s.answers, answer)
	s.evaluations = append(s.evaluations, cloneEvaluation(evaluation))

	return nil
}

// History returns copies of all completed turns in order.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]Turn, 0, len(s.answers))
	for i := range s.answers {
		turns = append(turns, Turn{
			Index:      i,
			Question:   s.questions[i],
			Answer:     s.answers[i],
			Evaluation: cloneEvaluation(s.evaluations[i]),
		})
	}
	return turns
}

func cloneEvaluation(e Evaluation) Evaluation {
	out := e
	if e.Strengths != nil {
		out.Strengths = append([]string(nil), e.Strengths...)
	}
	if e.Improvements != nil {
		out.Improvements = append([]string(nil), e.Improvements...)
	}
	return out
}
