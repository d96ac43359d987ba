// Package textract turns inbound files into plain text for classification
// and extraction.
package textract

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

const (
	defaultSender  = "unknown@example.com"
	defaultSubject = "No Subject"
)

// ErrNoTextBody indicates a message carried no inline text/plain part.
var ErrNoTextBody = errors.New("message has no text body")

var headerDecoder = new(mime.WordDecoder)

// Email parses an RFC 5322 message and renders its subject, sender, and
// first inline text/plain body as text.
func Email(raw []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}

	body, err := textBody(mail.Header(msg.Header), msg.Body)
	if err != nil && !errors.Is(err, ErrNoTextBody) {
		return "", err
	}

	sender := decodeHeader(msg.Header.Get("From"))
	if sender == "" {
		sender = defaultSender
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	if subject == "" {
		subject = defaultSubject
	}

	return fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", subject, sender, body), nil
}

type header interface {
	Get(key string) string
}

func textBody(h header, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(multipart.NewReader(r, params["boundary"]))
	}

	if mediaType != "text/plain" {
		return "", ErrNoTextBody
	}

	data, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(data), nil
}

func multipartBody(mr *multipart.Reader) (string, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", ErrNoTextBody
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		if strings.Contains(strings.ToLower(part.Header.Get("Content-Disposition")), "attachment") {
			continue
		}

		body, err := textBody(part.Header, part)
		if errors.Is(err, ErrNoTextBody) {
			continue
		}
		return body, err
	}
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func decodeHeader(v string) string {
	decoded, err := headerDecoder.DecodeHeader(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(decoded)
}

type newlineStripper struct {
	r io.Reader
}

func (n newlineStripper) Read(p []byte) (int, error) {
	count, err := n.r.Read(p)
	j := 0
	for i := range count {
		if p[i] != '\r' && p[i] != '\n' {
			p[j] = p[i]
			j++
		}
	}
	return j, err
}
