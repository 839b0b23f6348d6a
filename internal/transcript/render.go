package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported transcript format %q", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Render encodes the transcript in the given format.
func Render(t Transcript, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "render json transcript")
		}
		return data, nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return nil, errors.Wrap(err, "render yaml transcript")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, "render yaml transcript")
		}
		return buf.Bytes(), nil
	case FormatPDF:
		return renderPDF(t)
	default:
		return nil, errors.Errorf("unsupported transcript format %q", format)
	}
}
