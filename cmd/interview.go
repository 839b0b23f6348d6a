package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/audio"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/resume"
	"github.com/spigell/interview-coach/internal/speech"
	"github.com/spigell/interview-coach/internal/transcript"
)

// The terminal front end owns a single session.
const terminalKey = "terminal"

const (
	actionAnswer  = "Speak my answer"
	actionRepeat  = "Repeat the question"
	actionHistory = "Show history"
	actionSave    = "Save transcript"
	actionResume  = "Load another resume"
	actionQuit    = "Quit"
)

func init() {
	rootCmd.Flags().StringP("resume", "r", "", "path to the resume (PDF or plain text)")
}

func runInterview(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup()

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		fatalStartup(logger, err)
	}

	out := cmd.OutOrStdout()

	recorder := audio.NewRecorder(audio.ParseCommand(config.Audio.RecordCommand), config.Audio.MaxAnswer, logger)
	player := audio.NewPlayer(audio.ParseCommand(config.Audio.PlayCommand), logger)
	voice := speech.NewLocal(recorder, player, svc.generator, svc.generator, logger)
	voice.OnListen = func() {
		fmt.Fprintf(out, "Listening... speak now (up to %s).\n", config.Audio.MaxAnswer)
	}

	term := &terminal{
		controller: svc.controller.WithSpeech(voice),
		exporter:   svc.exporter,
		autoExport: config.Export.Auto,
		out:        out,
		logger:     logger,
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	if err := term.run(ctx, resumePath); err != nil {
		logger.Fatal("interview failed", zap.Error(err))
	}
}

type terminal struct {
	controller *interview.Controller
	exporter   *transcript.Exporter
	autoExport bool
	out        io.Writer
	logger     *zap.Logger
}

func (t *terminal) run(ctx context.Context, resumePath string) error {
	if err := t.load(ctx, resumePath); err != nil {
		if isPromptExit(err) {
			return nil
		}
		return err
	}
	t.present(ctx)

	for ctx.Err() == nil {
		action, err := t.choose()
		if isPromptExit(err) {
			return nil
		}
		if err != nil {
			return err
		}

		switch action {
		case actionAnswer:
			t.answer(ctx)
		case actionRepeat:
			t.present(ctx)
		case actionHistory:
			t.history()
		case actionSave:
			t.save(ctx)
		case actionResume:
			if err := t.load(ctx, ""); err != nil {
				if isPromptExit(err) {
					continue
				}
				return err
			}
			t.present(ctx)
		case actionQuit:
			return nil
		}
	}

	return nil
}

// load asks for a resume until a session is started or the prompt is abandoned.
func (t *terminal) load(ctx context.Context, path string) error {
	for {
		if strings.TrimSpace(path) == "" {
			var err error
			path, err = askResumePath()
			if err != nil {
				return err
			}
		}

		document, err := resume.ReadFile(path)
		if err == nil {
			fmt.Fprintln(t.out, "Reading the resume and preparing questions...")
			var session *interview.Session
			session, err = t.controller.StartSession(ctx, terminalKey, document)
			if err == nil {
				fmt.Fprintf(t.out, "Prepared %d questions.\n", session.Len())
				return nil
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintln(t.out, describe(err))
		path = ""
	}
}

func askResumePath() (string, error) {
	prompt := promptui.Prompt{
		Label: "Path to your resume",
		Validate: func(input string) error {
			input = strings.TrimSpace(input)
			if input == "" {
				return errors.New("path is required")
			}
			if _, err := os.Stat(input); err != nil {
				return errors.New("file not found")
			}
			return nil
		},
	}

	path, err := prompt.Run()
	return strings.TrimSpace(path), err
}

func (t *terminal) choose() (string, error) {
	items := []string{actionAnswer, actionRepeat, actionHistory, actionSave, actionResume, actionQuit}
	label := "What next?"

	if session, err := t.controller.Session(terminalKey); err == nil {
		if session.IsComplete() {
			items = items[2:]
			label = "Interview complete. What next?"
		} else {
			label = fmt.Sprintf("Question %d of %d", session.CurrentIndex()+1, session.Len())
		}
	}

	sel := promptui.Select{
		Label: label,
		Items: items,
	}
	_, action, err := sel.Run()
	return action, err
}

func (t *terminal) present(ctx context.Context) {
	prompt, err := t.controller.PresentCurrentQuestion(ctx, terminalKey)
	if prompt.Question != "" {
		fmt.Fprintf(t.out, "\nQuestion %d/%d: %s\n", prompt.Index+1, prompt.Total, prompt.Question)
	}
	if err != nil {
		fmt.Fprintln(t.out, describe(err))
	}
}

func (t *terminal) answer(ctx context.Context) {
	result, err := t.controller.SubmitSpokenAnswer(ctx, terminalKey)
	if err != nil {
		fmt.Fprintln(t.out, describe(err))
		return
	}

	fmt.Fprintf(t.out, "\nYou said: %s\n", result.Turn.Answer)
	fmt.Fprintf(t.out, "Evaluation: %s\n", result.Turn.Evaluation.Spoken())
	if result.PlaybackErr != nil {
		fmt.Fprintln(t.out, describe(result.PlaybackErr))
	}

	if !result.Complete {
		t.present(ctx)
		return
	}

	if session, err := t.controller.Session(terminalKey); err == nil {
		summary := transcript.FromSession(session, time.Now())
		fmt.Fprintf(t.out, "\nInterview completed! Average rating: %.1f out of 10.\n", summary.AverageRating)
	}
	if t.autoExport {
		t.save(ctx)
	}
}

func (t *terminal) history() {
	session, err := t.controller.Session(terminalKey)
	if err != nil {
		fmt.Fprintln(t.out, describe(err))
		return
	}

	turns := session.History()
	if len(turns) == 0 {
		fmt.Fprintln(t.out, "No answers yet.")
		return
	}
	for _, turn := range turns {
		fmt.Fprintf(t.out, "\n%d. %s\n   Answer: %s\n   %s\n", turn.Index+1, turn.Question, turn.Answer, turn.Evaluation.Spoken())
	}
}

func (t *terminal) save(ctx context.Context) {
	session, err := t.controller.Session(terminalKey)
	if err != nil {
		fmt.Fprintln(t.out, describe(err))
		return
	}

	locations, err := t.exporter.Export(ctx, session)
	for _, location := range locations {
		fmt.Fprintf(t.out, "Transcript saved to %s\n", location)
	}
	if err != nil {
		t.logger.Warn("saving transcript failed", zap.Error(err))
		fmt.Fprintf(t.out, "Could not save the transcript everywhere: %v\n", err)
	}
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, context.Canceled)
}

// describe turns an interview error into a message for the person at the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, interview.ErrRecognition):
		return "Sorry, I could not understand the audio. Please try again."
	case errors.Is(err, interview.ErrTimeout):
		return "The request took too long. Please try again."
	case errors.Is(err, interview.ErrServiceUnavailable):
		return fmt.Sprintf("The speech service is unavailable right now: %v", err)
	case errors.Is(err, interview.ErrPlayback):
		return fmt.Sprintf("Could not play audio: %v", err)
	case errors.Is(err, interview.ErrIngestion):
		return fmt.Sprintf("Could not read the resume: %v", err)
	case errors.Is(err, interview.ErrEmptyQuestionSet):
		return "No interview questions could be generated from this resume. Try another one."
	case errors.Is(err, interview.ErrGeneration):
		return fmt.Sprintf("The language model did not respond properly: %v", err)
	case errors.Is(err, interview.ErrSessionComplete):
		return "All questions have been answered."
	case errors.Is(err, interview.ErrSessionNotFound):
		return "No interview is loaded yet."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
