package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel        = "gemini-2.5-flash"
	defaultSpeechModel  = "gemini-2.5-flash-preview-tts"
	defaultVoice        = "Kore"
	defaultMaxRetries   = 3
	defaultMaxLogLength = 200

	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 20 * time.Second
	// Quota errors asking to wait longer than this are returned immediately.
	maxQuotaDelay = 30 * time.Second
)

// wait blocks between retries; replaced in tests.
var wait = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(ms|s|sec|secs|seconds?)?`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Options configures a Generator.
type Options struct {
	APIKey       string
	Model        string
	SpeechModel  string
	Voice        string
	MaxRetries   int
	MaxLogLength int
}

// Generator wraps the Google GenAI client. Every request is a fresh single-turn chat.
type Generator struct {
	chats       chatCreator
	model       string
	speechModel string
	voice       string
	maxRetries  int
	maxLogLen   int
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g := &Generator{
		chats:       genaiChats{chats: client.Chats},
		model:       firstNonEmpty(opts.Model, defaultModel),
		speechModel: firstNonEmpty(opts.SpeechModel, defaultSpeechModel),
		voice:       firstNonEmpty(opts.Voice, defaultVoice),
		maxRetries:  opts.MaxRetries,
		maxLogLen:   opts.MaxLogLength,
	}
	if g.maxRetries <= 0 {
		g.maxRetries = defaultMaxRetries
	}
	if g.maxLogLen <= 0 {
		g.maxLogLen = defaultMaxLogLength
	}
	g.logger = logger.WithCommonFields(log, Provider, g.model)

	return g, nil
}

// GenerateContent sends message with the system instruction and returns the textual reply.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	return g.generateText(ctx, &genai.GenerateContentConfig{}, system, message)
}

// GenerateJSON is GenerateContent constrained to a JSON reply matching schema.
func (g *Generator) GenerateJSON(ctx context.Context, system, message string, schema *genai.Schema) (string, error) {
	return g.generateText(ctx, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}, system, message)
}

func (g *Generator) generateText(ctx context.Context, config *genai.GenerateContentConfig, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	g.log().Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, g.maxLogLen)),
	)

	resp, err := g.send(ctx, g.model, config, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	g.log().Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) send(ctx context.Context, model string, config *genai.GenerateContentConfig, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if g == nil || g.chats == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		chat, err := g.chats.Create(ctx, model, config, nil)
		if err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}

		resp, err := chat.SendMessage(ctx, parts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.log().Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
	}

	return nil, fmt.Errorf("generate content: %w", lastErr)
}

// retryDelay reports whether err is worth another attempt and how long to wait before it.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if quota, ok := quotaDelay(apiErr); ok {
			if quota > maxQuotaDelay {
				return 0, false
			}
			return quota, true
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
	default:
		return 0, false
	}

	delay := time.Duration(float64(baseRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay, true
}

func quotaDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(match[2], "ms") {
		return time.Duration(value * float64(time.Millisecond)), true
	}
	return time.Duration(value * float64(time.Second)), true
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func (g *Generator) log() *zap.Logger {
	if g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
