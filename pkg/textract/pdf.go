package textract

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrUnreadablePDF indicates the PDF could not be decoded.
var ErrUnreadablePDF = errors.New("unreadable pdf")

// PDF returns the plain text of every page in data.
func PDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}

	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}

	return string(out), nil
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}
	return count, nil
}
