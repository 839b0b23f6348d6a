package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/filtering"
	"github.com/spigell/interview-coach/internal/logger"
)

// ResumeIngestor turns an uploaded document into plain text.
type ResumeIngestor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// ProfileExtractor derives the skills and projects summary used as interview context.
type ProfileExtractor interface {
	ExtractProfile(ctx context.Context, resumeText string) (string, error)
}

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, profile string) ([]string, error)
}

type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, question, answer, context string) (Evaluation, error)
}

// SpeechChannel captures a spoken answer and plays synthesized speech.
type SpeechChannel interface {
	Capture(ctx context.Context) (string, error)
	Speak(ctx context.Context, text string) error
}

// Deps aggregates the collaborators used by the controller.
type Deps struct {
	Ingestor  ResumeIngestor
	Profiles  ProfileExtractor
	Questions QuestionGenerator
	Evaluator AnswerEvaluator
	Speech    SpeechChannel
	Filters   []filtering.Filter
	Store     *Store
	Logger    *zap.Logger
}

// Config holds per-call timeouts. Zero disables the timeout.
type Config struct {
	ModelTimeout   time.Duration
	CaptureTimeout time.Duration
	SpeakTimeout   time.Duration
	// SessionTTL forgets sessions idle for longer. Used only when Deps.Store is nil.
	SessionTTL time.Duration
}

// Prompt describes the question presented to the user.
type Prompt struct {
	Index    int
	Total    int
	Question string
	Complete bool
}

// TurnResult is the outcome of one committed turn.
type TurnResult struct {
	Turn     Turn
	Total    int
	Complete bool
	// PlaybackErr is set when the evaluation was committed but could not be spoken.
	PlaybackErr error
}

// Controller drives interview sessions one user action at a time.
type Controller struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

func NewController(deps Deps, cfg Config) *Controller {
	if deps.Store == nil {
		deps.Store = NewStore(cfg.SessionTTL)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{deps: deps, cfg: cfg, logger: logger}
}

// WithSpeech returns a controller sharing the same store that talks to another speech channel.
func (c *Controller) WithSpeech(speech SpeechChannel) *Controller {
	deps := c.deps
	deps.Speech = speech
	return &Controller{deps: deps, cfg: c.cfg, logger: c.logger}
}

// StartSession builds a new session from the document and stores it under key,
// replacing any previous session. On failure the previous session is kept.
func (c *Controller) StartSession(ctx context.Context, key string, document []byte) (*Session, error) {
	release, err := c.deps.Store.Reserve(key)
	if err != nil {
		return nil, err
	}
	defer release()

	log := c.logger.With(logger.SessionFields(key, "")...)

	text, err := withTimeout(ctx, c.cfg.ModelTimeout, func(ctx context.Context) (string, error) {
		return c.deps.Ingestor.ExtractText(ctx, document)
	})
	if err != nil {
		return nil, classify(err, ErrIngestion, "extract resume text")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract resume text: %w: document has no text", ErrIngestion)
	}

	log.Info("resume text extracted", zap.Int("text_length", utf8.RuneCountInString(text)))

	profile, err := withTimeout(ctx, c.cfg.ModelTimeout, func(ctx context.Context) (string, error) {
		return c.deps.Profiles.ExtractProfile(ctx, text)
	})
	if err != nil {
		return nil, classify(err, ErrGeneration, "extract profile")
	}

	questions, err := withTimeout(ctx, c.cfg.ModelTimeout, func(ctx context.Context) ([]string, error) {
		return c.deps.Questions.GenerateQuestions(ctx, profile)
	})
	if err != nil {
		return nil, classify(err, ErrGeneration, "generate questions")
	}

	questions, err = filtering.Run(ctx, log, c.deps.Filters, questions)
	if err != nil {
		return nil, fmt.Errorf("filter questions: %w", err)
	}

	session, err := New(uuid.NewString(), questions, profile)
	if err != nil {
		return nil, err
	}

	c.deps.Store.replace(key, session)

	log.Info("interview session started",
		zap.String(logger.FieldSessionID, session.ID),
		zap.Int("questions", session.Len()),
	)

	return session, nil
}

// PresentCurrentQuestion speaks the current question and returns it for display.
// A complete session is reported through Prompt.Complete.
func (c *Controller) PresentCurrentQuestion(ctx context.Context, key string) (Prompt, error) {
	session, release, err := c.deps.Store.Begin(key)
	if err != nil {
		return Prompt{}, err
	}
	defer release()

	prompt := Prompt{Index: session.CurrentIndex(), Total: session.Len()}

	if session.IsComplete() {
		prompt.Complete = true
		return prompt, nil
	}

	question, err := session.CurrentQuestion()
	if err != nil {
		return prompt, err
	}
	prompt.Question = question

	if err := c.speak(ctx, question); err != nil {
		c.logger.With(logger.TurnFields(key, prompt.Index)...).Warn("speaking the question failed", zap.Error(err))
		return prompt, err
	}

	return prompt, nil
}

// SubmitSpokenAnswer runs one turn: capture, evaluate, record, speak.
// When capture or evaluation fails the session is left unchanged.
func (c *Controller) SubmitSpokenAnswer(ctx context.Context, key string) (*TurnResult, error) {
	session, release, err := c.deps.Store.Begin(key)
	if err != nil {
		return nil, err
	}
	defer release()

	question, err := session.CurrentQuestion()
	if err != nil {
		return nil, err
	}

	index := session.CurrentIndex()
	log := c.logger.With(logger.TurnFields(key, index)...)

	answer, err := withTimeout(ctx, c.cfg.CaptureTimeout, func(ctx context.Context) (string, error) {
		return c.deps.Speech.Capture(ctx)
	})
	if err == nil && strings.TrimSpace(answer) == "" {
		err = ErrRecognition
	}
	if err != nil {
		log.Warn("capturing the answer failed", zap.Error(err))
		return nil, classify(err, ErrServiceUnavailable, "capture answer")
	}
	answer = strings.TrimSpace(answer)

	evaluation, err := withTimeout(ctx, c.cfg.ModelTimeout, func(ctx context.Context) (Evaluation, error) {
		return c.deps.Evaluator.EvaluateAnswer(ctx, question, answer, session.Context())
	})
	if err != nil {
		log.Warn("evaluating the answer failed", zap.Error(err))
		return nil, classify(err, ErrGeneration, "evaluate answer")
	}

	if err := session.RecordAnswer(answer, evaluation); err != nil {
		return nil, err
	}

	log.Info("answer recorded",
		zap.Float64("rating", evaluation.Rating),
		zap.Bool("complete", session.IsComplete()),
	)

	result := &TurnResult{
		Turn: Turn{
			Index:      index,
			Question:   question,
			Answer:     answer,
			Evaluation: evaluation,
		},
		Total:    session.Len(),
		Complete: session.IsComplete(),
	}

	if err := c.speak(ctx, evaluation.Spoken()); err != nil {
		log.Warn("speaking the evaluation failed", zap.Error(err))
		result.PlaybackErr = err
	}

	return result, nil
}

// Session returns the session stored under key.
func (c *Controller) Session(key string) (*Session, error) {
	return c.deps.Store.Get(key)
}

// Reset drops the session stored under key.
func (c *Controller) Reset(key string) error {
	if err := c.deps.Store.Delete(key); err != nil {
		return err
	}
	c.logger.Info("interview session reset", logger.SessionFields(key, "")...)
	return nil
}

func (c *Controller) speak(ctx context.Context, text string) error {
	_, err := withTimeout(ctx, c.cfg.SpeakTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.deps.Speech.Speak(ctx, text)
	})
	return classify(err, ErrPlayback, "speak")
}

func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
	}
	return out, err
}
