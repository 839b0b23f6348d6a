package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/interview"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
	lastSchema *genai.Schema
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema) (string, error) {
	s.lastSchema = schema
	return s.GenerateContent(ctx, system, prompt)
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestEvaluatorEvaluateAnswer(t *testing.T) {
	stub := &stubGenerator{response: `{"rating": 8, "summary": "Good depth.", "strengths": ["Concrete example"], "improvements": ["Mention failure modes"], "recommendation": "Practice system design."}`}
	evaluator := NewEvaluator(stub, zap.NewNop(), 0)

	ev, err := evaluator.EvaluateAnswer(context.Background(), "How does the scheduler work?", "It multiplexes goroutines.", "Skills: Go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Rating != 8 || ev.Summary != "Good depth." {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}
	if len(ev.Strengths) != 1 || len(ev.Improvements) != 1 || ev.Recommendation == "" {
		t.Fatalf("lists were not decoded: %+v", ev)
	}
	if ev.Raw != stub.response {
		t.Fatalf("expected raw response to be kept")
	}

	for _, want := range []string{"How does the scheduler work?", "It multiplexes goroutines.", "Skills: Go"} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected %q in prompt: %s", want, stub.lastPrompt)
		}
	}
	if stub.lastSchema != evaluationSchema {
		t.Fatalf("expected evaluation schema to be requested")
	}
}

func TestEvaluatorRejectsEmptyAnswer(t *testing.T) {
	evaluator := NewEvaluator(&stubGenerator{}, nil, 0)

	if _, err := evaluator.EvaluateAnswer(context.Background(), "q?", "  ", ""); !errors.Is(err, interview.ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestEvaluatorPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	evaluator := NewEvaluator(&stubGenerator{err: boom}, zap.NewNop(), 0)

	if _, err := evaluator.EvaluateAnswer(context.Background(), "q?", "a", ""); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestParseEvaluation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		rating float64
		strong int
	}{
		{
			name:   "code block and string rating",
			raw:    "```json\n{\"rating\": \"7.5\", \"summary\": \"ok\", \"strengths\": [\"a\", \" \"]}\n```",
			rating: 7.5,
			strong: 1,
		},
		{
			name:   "single string list",
			raw:    `{"rating": 4, "strengths": "clear voice"}`,
			rating: 4,
			strong: 1,
		},
		{
			name:   "clamped high",
			raw:    `{"rating": 42}`,
			rating: 10,
		},
		{
			name:   "clamped low",
			raw:    `{"rating": -3}`,
			rating: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, err := parseEvaluation(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Rating != tt.rating {
				t.Fatalf("expected rating %v, got %v", tt.rating, ev.Rating)
			}
			if len(ev.Strengths) != tt.strong {
				t.Fatalf("expected %d strengths, got %q", tt.strong, ev.Strengths)
			}
		})
	}

	if _, err := parseEvaluation("Rating: 7/10"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestQuestionerGenerateQuestions(t *testing.T) {
	stub := &stubGenerator{response: `{"questions": ["Why Kafka?", "How did you scale Postgres?"]}`}
	questioner := NewQuestioner(stub, zap.NewNop(), 5)

	questions, err := questioner.GenerateQuestions(context.Background(), "Skills: Kafka, Postgres")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 2 || questions[0] != "Why Kafka?" {
		t.Fatalf("unexpected questions: %q", questions)
	}
	if !strings.Contains(stub.lastSystem, "at most 5") {
		t.Fatalf("expected the question cap in the instruction: %s", stub.lastSystem)
	}
	if stub.lastSchema != questionsSchema {
		t.Fatalf("expected questions schema to be requested")
	}
}

func TestParseQuestions(t *testing.T) {
	t.Parallel()

	got, err := parseQuestions(`["a?", "b?"]`)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected bare list to be accepted, got %q (%v)", got, err)
	}

	got, err = parseQuestions(`{"questions": []}`)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty list without error, got %q (%v)", got, err)
	}

	if _, err := parseQuestions("1. a?\n2. b?"); err == nil {
		t.Fatal("expected error for a plain text list")
	}
}

func TestProfilerExtractProfile(t *testing.T) {
	stub := &stubGenerator{response: "  Technical skills: Go\n"}
	profiler := NewProfiler(stub, zap.NewNop(), 0)

	profile, err := profiler.ExtractProfile(context.Background(), "Jane Doe, Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != "Technical skills: Go" {
		t.Fatalf("unexpected profile: %q", profile)
	}
	if !strings.Contains(stub.lastPrompt, "Jane Doe, Go developer") || stub.lastSystem != profilePrompt {
		t.Fatalf("unexpected request: system=%q prompt=%q", stub.lastSystem, stub.lastPrompt)
	}

	if _, err := profiler.ExtractProfile(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty resume text")
	}
}
