package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/dispatch/internal/classify"
)

// UnknownFilename is recorded when the input did not arrive as a file.
const UnknownFilename = "N/A"

// Input is a validated inbound document ready for a run. IsStructured is
// set for any valid JSON payload; Structured holds it only when it is an
// object.
type Input struct {
	Source       classify.SourceType
	Filename     string
	ContentType  string
	Data         []byte
	Text         string
	IsStructured bool
	Structured   map[string]any
}

// FileInput validates an uploaded file by extension.
func FileInput(filename string, data []byte, contentType string) (Input, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	var source classify.SourceType
	switch ext {
	case "eml", "msg":
		source = classify.SourceEmailFile
	case "pdf":
		source = classify.SourcePDF
	default:
		return Input{}, fmt.Errorf("%w: .%s. Supported types are .eml, .msg, .pdf", ErrUnsupportedFile, ext)
	}

	if filename == "" {
		filename = UnknownFilename
	}

	return Input{
		Source:      source,
		Filename:    filename,
		ContentType: detectContentType(contentType, data),
		Data:        data,
	}, nil
}

// TextInput wraps raw email text.
func TextInput(text string) Input {
	return Input{
		Source:      classify.SourceEmailText,
		Filename:    UnknownFilename,
		ContentType: "text/plain",
		Data:        []byte(text),
		Text:        text,
	}
}

// JSONInput parses a JSON payload. Valid JSON that is not an object is
// accepted; the structured extractor reports it as an anomaly.
func JSONInput(raw string) (Input, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	in := Input{
		Source:       classify.SourceJSON,
		Filename:     UnknownFilename,
		ContentType:  "application/json",
		Data:         []byte(raw),
		Text:         raw,
		IsStructured: true,
	}

	if obj, ok := v.(map[string]any); ok {
		in.Structured = obj
		if pretty, err := json.MarshalIndent(obj, "", "  "); err == nil {
			in.Text = string(pretty)
		}
	}

	return in, nil
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}
