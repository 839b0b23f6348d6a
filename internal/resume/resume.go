package resume

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dslipak/pdf"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
)

const pdfMagic = "%PDF-"

// Ingestor extracts plain text from uploaded resumes.
// PDF documents are parsed; plain UTF-8 text is accepted as is.
type Ingestor struct {
	logger *zap.Logger
}

func NewIngestor(logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{logger: logger}
}

func (i *Ingestor) ExtractText(ctx context.Context, document []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(document)) == 0 {
		return "", errors.Wrap(interview.ErrIngestion, "document is empty")
	}

	if !bytes.HasPrefix(bytes.TrimLeft(document, "\x00\t\r\n "), []byte(pdfMagic)) {
		if !utf8.Valid(document) {
			return "", errors.Wrap(interview.ErrIngestion, "document is neither a PDF nor UTF-8 text")
		}
		i.logger.Debug("resume accepted as plain text", zap.Int("bytes", len(document)))
		return normalizeText(string(document)), nil
	}

	text, err := extractPDF(document)
	if err != nil {
		return "", err
	}

	i.logger.Debug("resume pdf parsed",
		zap.Int("bytes", len(document)),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	return text, nil
}

func extractPDF(document []byte) (text string, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(interview.ErrIngestion, "read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", errors.Wrap(fmt.Errorf("%w: %w", interview.ErrIngestion, err), "open pdf")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", errors.Wrap(fmt.Errorf("%w: %w", interview.ErrIngestion, err), "extract pdf text")
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", errors.Wrap(fmt.Errorf("%w: %w", interview.ErrIngestion, err), "read pdf text")
	}

	return normalizeText(buf.String()), nil
}

// ReadFile loads a resume from disk for the terminal interview.
func ReadFile(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.Wrap(interview.ErrIngestion, "resume path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(fmt.Errorf("%w: %w", interview.ErrIngestion, err), "read resume %q", path)
	}
	return data, nil
}

func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
