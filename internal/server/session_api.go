package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/speech"
	"github.com/spigell/interview-coach/internal/transcript"
)

const (
	sessionCookie = "interview_session"
	cookieMaxAge  = 24 * time.Hour
	exportTimeout = 30 * time.Second
)

func (s *Server) initSessionRoutes(router fiber.Router) {
	router.Route("/session", func(session fiber.Router) {
		session.Post("", s.startSession)
		session.Get("", s.getSession)
		session.Delete("", s.resetSession)
		session.Get("/question/audio", s.questionAudio)
		session.Post("/answer", s.submitAnswer)
		session.Get("/history", s.history)
		session.Get("/transcript", s.transcript)
	})
}

type sessionView struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Complete  bool   `json:"complete"`
	Question  string `json:"question,omitempty"`
}

type answerView struct {
	Turn            interview.Turn `json:"turn"`
	Total           int            `json:"total"`
	Complete        bool           `json:"complete"`
	EvaluationText  string         `json:"evaluation_text"`
	EvaluationAudio string         `json:"evaluation_audio,omitempty"`
	PlaybackError   string         `json:"playback_error,omitempty"`
	Exported        []string       `json:"exported,omitempty"`
}

type historyView struct {
	Turns []interview.Turn `json:"turns"`
}

func newSessionView(session *interview.Session) sessionView {
	view := sessionView{
		SessionID: session.ID,
		Index:     session.CurrentIndex(),
		Total:     session.Len(),
		Complete:  session.IsComplete(),
	}
	if q, err := session.CurrentQuestion(); err == nil {
		view.Question = q
	}
	return view
}

// sessionKey returns the key from the session cookie, issuing a new one when create is set.
func (s *Server) sessionKey(c *fiber.Ctx, create bool) (string, error) {
	// The cookie value points into the request buffer, which fasthttp reuses.
	key := utils.CopyString(c.Cookies(sessionCookie))
	if _, err := uuid.Parse(key); err == nil {
		return key, nil
	}
	if !create {
		return "", interview.ErrSessionNotFound
	}

	key = uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return key, nil
}

func formFile(c *fiber.Ctx, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("multipart field %q is required", field))
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open uploaded %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read uploaded %s: %w", field, err)
	}
	return data, header.Header.Get(fiber.HeaderContentType), nil
}

func (s *Server) startSession(c *fiber.Ctx) error {
	document, _, err := formFile(c, "resume")
	if err != nil {
		return err
	}

	key, err := s.sessionKey(c, true)
	if err != nil {
		return err
	}

	session, err := s.controller.StartSession(c.UserContext(), key, document)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(newSessionView(session))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	session, err := s.controller.Session(key)
	if err != nil {
		return err
	}
	return c.JSON(newSessionView(session))
}

func (s *Server) resetSession(c *fiber.Ctx) error {
	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	if err := s.controller.Reset(key); err != nil {
		return err
	}

	c.ClearCookie(sessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) questionAudio(c *fiber.Ctx) error {
	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	channel := speech.NewBuffered(s.transcriber, s.synthesizer, nil, "")
	prompt, err := s.controller.WithSpeech(channel).PresentCurrentQuestion(c.UserContext(), key)
	if err != nil {
		return err
	}
	if prompt.Complete {
		return interview.ErrSessionComplete
	}

	utterance, ok := channel.Last()
	if !ok {
		return fmt.Errorf("question %d was not synthesized: %w", prompt.Index, interview.ErrPlayback)
	}

	c.Set("X-Question-Index", strconv.Itoa(prompt.Index))
	c.Set("X-Question-Total", strconv.Itoa(prompt.Total))
	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(utterance.Audio)
}

func (s *Server) submitAnswer(c *fiber.Ctx) error {
	audio, mimeType, err := formFile(c, "audio")
	if err != nil {
		return err
	}

	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	channel := speech.NewBuffered(s.transcriber, s.synthesizer, audio, mimeType)
	result, err := s.controller.WithSpeech(channel).SubmitSpokenAnswer(c.UserContext(), key)
	if err != nil {
		return err
	}

	view := answerView{
		Turn:           result.Turn,
		Total:          result.Total,
		Complete:       result.Complete,
		EvaluationText: result.Turn.Evaluation.Spoken(),
	}
	if result.PlaybackErr != nil {
		view.PlaybackError = result.PlaybackErr.Error()
	} else if utterance, ok := channel.Last(); ok {
		view.EvaluationAudio = base64.StdEncoding.EncodeToString(utterance.Audio)
	}

	if result.Complete && s.exporter != nil {
		view.Exported = s.export(key)
	}

	return c.JSON(view)
}

func (s *Server) export(key string) []string {
	session, err := s.controller.Session(key)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	locations, err := s.exporter.Export(ctx, session)
	if err != nil {
		s.logger.Warn("automatic transcript export failed", zap.String(logger.FieldSessionID, session.ID), zap.Error(err))
	}
	return locations
}

func (s *Server) history(c *fiber.Ctx) error {
	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	session, err := s.controller.Session(key)
	if err != nil {
		return err
	}
	return c.JSON(historyView{Turns: session.History()})
}

func (s *Server) transcript(c *fiber.Ctx) error {
	format, err := transcript.ParseFormat(c.Query("format"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	key, err := s.sessionKey(c, false)
	if err != nil {
		return err
	}

	session, err := s.controller.Session(key)
	if err != nil {
		return err
	}

	now := time.Now()
	data, err := transcript.Render(transcript.FromSession(session, now), format)
	if err != nil {
		return err
	}

	c.Attachment(transcript.FileName(session.ID, now, format))
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(data)
}
