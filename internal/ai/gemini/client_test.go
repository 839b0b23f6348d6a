package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/audio"
	"github.com/spigell/interview-coach/internal/interview"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
	blobs    []*genai.Blob
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		if part.InlineData != nil {
			f.blobs = append(f.blobs, part.InlineData)
			continue
		}
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	originalWait := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = originalWait })
}

func newTestGenerator(chats chatCreator, maxRetries int) *Generator {
	return &Generator{
		chats:       chats,
		model:       "gemini-pro",
		speechModel: "gemini-tts",
		voice:       "Kore",
		maxRetries:  maxRetries,
		maxLogLen:   defaultMaxLogLength,
		logger:      zap.NewNop(),
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("retry ok"), nil)

	g := newTestGenerator(chats, 2)

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noSleep(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := newTestGenerator(chats, 2)

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected the api error to be wrapped, got %v", err)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := newTestGenerator(chats, 3)

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorWaitsForShortQuotaDelay(t *testing.T) {
	var slept []time.Duration
	originalWait := wait
	wait = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	defer func() { wait = originalWait }()

	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Details: []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "3s"}},
	}
	chats.enqueue("gemini-pro", nil, quotaErr)
	chats.enqueue("gemini-pro", textResponse("ok"), nil)

	g := newTestGenerator(chats, 3)

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("expected to wait the quota delay, got %v", slept)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newTestGenerator(chats, 3)

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error")
	}
	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("   "), nil)

	g := newTestGenerator(chats, 1)

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGenerateJSONSetsSchema(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse(`{"questions":[]}`), nil)

	g := newTestGenerator(chats, 1)

	if _, err := g.GenerateJSON(context.Background(), "sys", "msg", questionsSchema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := chats.calls[0].config
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema != questionsSchema {
		t.Fatalf("expected JSON response config, got %+v", cfg)
	}
}

func TestTranscribe(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		err    error
		data   []byte
		expect string
		want   error
	}{
		{name: "text", resp: textResponse(" I used channels. "), data: []byte("RIFF"), expect: "I used channels."},
		{name: "no speech", resp: textResponse("NO_SPEECH"), data: []byte("RIFF"), want: interview.ErrRecognition},
		{name: "empty recording", data: nil, want: interview.ErrRecognition},
		{
			name: "service down",
			err:  genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"},
			data: []byte("RIFF"),
			want: interview.ErrServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chats := newFakeChatCreator()
			if tt.resp != nil || tt.err != nil {
				chats.enqueue("gemini-pro", tt.resp, tt.err)
			}
			g := newTestGenerator(chats, 1)

			text, err := g.Transcribe(context.Background(), tt.data, "audio/wav")
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, text)
			}

			chat := chats.calls[0].chat
			if len(chat.blobs) != 1 || chat.blobs[0].MIMEType != "audio/wav" {
				t.Fatalf("expected audio to be sent inline, got %+v", chat.blobs)
			}
		})
	}
}

func TestSynthesizeWrapsPCM(t *testing.T) {
	chats := newFakeChatCreator()
	pcm := []byte{1, 0, 2, 0}
	chats.enqueue("gemini-tts", &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: pcm, MIMEType: "audio/L16;codec=pcm;rate=24000"},
			}}},
		}},
	}, nil)

	g := newTestGenerator(chats, 1)

	wav, err := g.Synthesize(context.Background(), "Rating: 7 out of 10.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !audio.IsWAV(wav) || len(wav) != 44+len(pcm) {
		t.Fatalf("expected wav output, got %d bytes", len(wav))
	}

	cfg := chats.calls[0].config
	if len(cfg.ResponseModalities) != 1 || cfg.ResponseModalities[0] != "AUDIO" {
		t.Fatalf("expected audio modality, got %v", cfg.ResponseModalities)
	}
	if cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Fatalf("expected configured voice")
	}
}

func TestSynthesizeFailures(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-tts", textResponse("no audio here"), nil)

	g := newTestGenerator(chats, 1)

	if _, err := g.Synthesize(context.Background(), "hello"); !errors.Is(err, interview.ErrPlayback) {
		t.Fatalf("expected ErrPlayback, got %v", err)
	}
	if _, err := g.Synthesize(context.Background(), "  "); !errors.Is(err, interview.ErrPlayback) {
		t.Fatalf("expected ErrPlayback for empty text, got %v", err)
	}
}
