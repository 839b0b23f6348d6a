package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	GenerateJSON(ctx context.Context, system, message string, schema *genai.Schema) (string, error)
	Model() string
}

//go:embed prompts/evaluation.md
var evaluationPrompt string

//go:embed prompts/evaluation_input.md
var evaluationInputTemplate string

const maxRating = 10

var evaluationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"rating":         {Type: genai.TypeNumber},
		"summary":        {Type: genai.TypeString},
		"strengths":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"improvements":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"recommendation": {Type: genai.TypeString},
	},
	Required: []string{"rating", "summary", "strengths", "improvements", "recommendation"},
}

// Evaluator rates spoken answers against the candidate's resume profile.
type Evaluator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewEvaluator(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Evaluator) EvaluateAnswer(ctx context.Context, question, answer, resumeContext string) (interview.Evaluation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return interview.Evaluation{}, fmt.Errorf("question is required")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return interview.Evaluation{}, interview.ErrEmptyAnswer
	}

	prompt := buildEvaluationPrompt(question, answer, resumeContext)

	e.logger.Debug("evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("question", utils.TruncateForLog(question, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateJSON(ctx, evaluationPrompt, prompt, evaluationSchema)
	if err != nil {
		return interview.Evaluation{}, err
	}

	e.logger.Debug("evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		return interview.Evaluation{}, err
	}

	return evaluation, nil
}

func buildEvaluationPrompt(question, answer, resumeContext string) string {
	template := evaluationInputTemplate
	if strings.TrimSpace(template) == "" {
		template = "Question: {{QUESTION}}\nAnswer: {{ANSWER}}\nContext: {{CONTEXT}}"
	}

	resumeContext = strings.TrimSpace(resumeContext)
	if resumeContext == "" {
		resumeContext = "none"
	}

	return strings.NewReplacer(
		"{{QUESTION}}", question,
		"{{ANSWER}}", answer,
		"{{CONTEXT}}", resumeContext,
	).Replace(template)
}

func parseEvaluation(raw string) (interview.Evaluation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return interview.Evaluation{}, fmt.Errorf("parse evaluation response: %w", err)
	}

	var evaluation interview.Evaluation
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &evaluation,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return interview.Evaluation{}, fmt.Errorf("create evaluation decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return interview.Evaluation{}, fmt.Errorf("decode evaluation response: %w", err)
	}

	if math.IsNaN(evaluation.Rating) || evaluation.Rating < 0 {
		evaluation.Rating = 0
	}
	if evaluation.Rating > maxRating {
		evaluation.Rating = maxRating
	}

	evaluation.Summary = strings.TrimSpace(evaluation.Summary)
	evaluation.Recommendation = strings.TrimSpace(evaluation.Recommendation)
	evaluation.Strengths = compact(evaluation.Strengths)
	evaluation.Improvements = compact(evaluation.Improvements)
	evaluation.Raw = raw

	return evaluation, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
