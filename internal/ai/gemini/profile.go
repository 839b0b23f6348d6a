package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/utils"
)

//go:embed prompts/profile.md
var profilePrompt string

// Profiler summarizes the skills and projects of a resume.
type Profiler struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewProfiler(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Profiler {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

func (p *Profiler) ExtractProfile(ctx context.Context, resumeText string) (string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return "", errors.New("resume text is required")
	}

	p.logger.Debug("profile request", zap.Int("resume_length", utf8.RuneCountInString(resumeText)))

	profile, err := p.generator.GenerateContent(ctx, profilePrompt, "Resume text:\n"+resumeText)
	if err != nil {
		return "", err
	}

	p.logger.Debug("profile response",
		zap.Int("response_length", utf8.RuneCountInString(profile)),
		zap.String("response_preview", utils.TruncateForLog(profile, p.maxLogLen)),
	)

	return strings.TrimSpace(profile), nil
}
