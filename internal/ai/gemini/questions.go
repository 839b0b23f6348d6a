package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

//go:embed prompts/questions.md
var questionsPrompt string

const defaultMaxQuestions = 7

var questionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"questions"},
}

// Questioner writes interview questions for a resume profile.
type Questioner struct {
	generator    contentGenerator
	logger       *zap.Logger
	maxQuestions int
}

func NewQuestioner(generator contentGenerator, logger *zap.Logger, maxQuestions int) *Questioner {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Questioner{generator: generator, logger: logger, maxQuestions: maxQuestions}
}

// GenerateQuestions returns the questions in the order the model produced them.
// An empty list is not an error here; the session rejects it.
func (q *Questioner) GenerateQuestions(ctx context.Context, profile string) ([]string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, errors.New("profile is required")
	}

	system := strings.ReplaceAll(questionsPrompt, "{{MAX_QUESTIONS}}", strconv.Itoa(q.maxQuestions))

	raw, err := q.generator.GenerateJSON(ctx, system, "Skills and projects:\n"+profile, questionsSchema)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("questions generated", zap.Int("count", len(questions)))

	return questions, nil
}

func parseQuestions(raw string) ([]string, error) {
	cleaned := extractJSON(raw)

	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		return payload.Questions, nil
	}

	var list []string
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		return nil, fmt.Errorf("parse questions response: %w", err)
	}
	return list, nil
}
