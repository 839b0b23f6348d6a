package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/ai/gemini"
	"github.com/spigell/interview-coach/internal/filtering"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/resume"
	"github.com/spigell/interview-coach/internal/secrets"
	"github.com/spigell/interview-coach/internal/transcript"
)

// services holds everything both the terminal and the HTTP front ends share.
type services struct {
	generator  *gemini.Generator
	controller *interview.Controller
	exporter   *transcript.Exporter
}

func setup() (*Config, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("parsing config", zap.Error(err))
	}

	return config, logger
}

func buildServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interview.ErrConfiguration, err)
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Options{
		APIKey:       apiKey,
		Model:        config.Gemini.Model,
		SpeechModel:  config.Gemini.SpeechModel,
		Voice:        config.Gemini.Voice,
		MaxRetries:   config.Gemini.MaxRetries,
		MaxLogLength: config.Gemini.MaxLogLength,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interview.ErrConfiguration, err)
	}

	filters := filtering.Default(config.Interview.MaxQuestions)
	for _, name := range config.Interview.DisabledFilters {
		filtering.DisableByName(filters, name, "disabled by configuration")
	}
	for _, status := range filtering.Describe(filters) {
		logger.Debug("question filter",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	controller := interview.NewController(interview.Deps{
		Ingestor:  resume.NewIngestor(logger),
		Profiles:  gemini.NewProfiler(generator, logger, config.Gemini.MaxLogLength),
		Questions: gemini.NewQuestioner(generator, logger, config.Interview.MaxQuestions),
		Evaluator: gemini.NewEvaluator(generator, logger, config.Gemini.MaxLogLength),
		Filters:   filters,
		Logger:    logger,
	}, interview.Config{
		ModelTimeout:   config.Interview.ModelTimeout,
		CaptureTimeout: config.Interview.CaptureTimeout,
		SpeakTimeout:   config.Interview.SpeakTimeout,
		SessionTTL:     config.Interview.SessionTTL,
	})

	exporter, err := newExporter(ctx, config.Export, logger)
	if err != nil {
		return nil, err
	}

	return &services{
		generator:  generator,
		controller: controller,
		exporter:   exporter,
	}, nil
}

func newExporter(ctx context.Context, config *ExportConfig, logger *zap.Logger) (*transcript.Exporter, error) {
	format, err := transcript.ParseFormat(config.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: export format: %w", interview.ErrConfiguration, err)
	}

	sinks := []transcript.Sink{transcript.NewDirSink(config.Dir)}

	if config.S3 != nil && config.S3.Enabled {
		s3, err := transcript.NewS3Sink(config.S3.S3Config)
		if err != nil {
			return nil, fmt.Errorf("%w: s3 export: %w", interview.ErrConfiguration, err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("%w: s3 export: %w", interview.ErrConfiguration, err)
		}
		sinks = append(sinks, s3)
		logger.Info("s3 export enabled",
			zap.String("endpoint", config.S3.Endpoint),
			zap.String("bucket", config.S3.Bucket),
		)
	}

	return transcript.NewExporter(format, logger, sinks...), nil
}

// fatalStartup stops the process on a configuration error, pointing at the likely fix.
func fatalStartup(logger *zap.Logger, err error) {
	fields := []zap.Field{zap.Error(err)}
	if errors.Is(err, secrets.ErrNotConfigured) {
		fields = append(fields, zap.String("hint", "set GEMINI_API_KEY (or GEMINI_API_KEY_FILE) in the environment or .env file"))
	}
	logger.Fatal("startup failed", fields...)
}
