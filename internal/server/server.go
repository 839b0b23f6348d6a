package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/speech"
	"github.com/spigell/interview-coach/internal/transcript"
)

const (
	defaultListen      = ":8080"
	defaultBodyLimitMB = 20
	shutdownTimeout    = 10 * time.Second
)

type Config struct {
	Listen       string `mapstructure:"listen"`
	BodyLimitMB  int    `mapstructure:"body-limit-mb"`
	SecureCookie bool   `mapstructure:"secure-cookie"`
}

// Server exposes interview sessions over HTTP. Each request is one user action.
type Server struct {
	app         *fiber.App
	cfg         Config
	controller  *interview.Controller
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	exporter    *transcript.Exporter
	logger      *zap.Logger
}

// New builds the server. exporter may be nil; when set, completed sessions are exported automatically.
func New(controller *interview.Controller, transcriber speech.Transcriber, synthesizer speech.Synthesizer, exporter *transcript.Exporter, cfg Config, logger *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = defaultBodyLimitMB
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:         cfg,
		controller:  controller,
		transcriber: transcriber,
		synthesizer: synthesizer,
		exporter:    exporter,
		logger:      logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "interview-coach",
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(fiberRecover.New())
	app.Use(s.logRequests)

	apiV1 := app.Group("/api/v1")
	s.initSessionRoutes(apiV1)

	s.app = app
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- s.app.Listen(s.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("gracefully shutting down")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}

	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("http request", fields...)
	} else {
		s.logger.Debug("http request", fields...)
	}
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(errorResponse{Error: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, interview.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, interview.ErrTurnInProgress), errors.Is(err, interview.ErrSessionComplete):
		return fiber.StatusConflict
	case errors.Is(err, interview.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, interview.ErrIngestion),
		errors.Is(err, interview.ErrEmptyQuestionSet),
		errors.Is(err, interview.ErrRecognition),
		errors.Is(err, interview.ErrEmptyAnswer):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, interview.ErrGeneration),
		errors.Is(err, interview.ErrServiceUnavailable),
		errors.Is(err, interview.ErrPlayback):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
