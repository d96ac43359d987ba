package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/dispatch/pkg/formatting"
	"github.com/JaimeStill/dispatch/pkg/handlers"
	"github.com/JaimeStill/dispatch/pkg/routes"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, in Input) (*Result, error)
}

// BatchItem is the outcome of one file in a batch request.
type BatchItem struct {
	Filename string  `json:"filename"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// BatchResponse summarizes a batch request.
type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
}

// Handler provides the HTTP endpoints that start pipeline runs.
type Handler struct {
	runner        Runner
	cfg           *Config
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given runner, config, logger, and upload size limit.
func NewHandler(runner Runner, cfg *Config, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		runner:        runner,
		cfg:           cfg,
		logger:        logger.With("handler", "pipeline"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/process",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Process},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch},
		},
	}
}

// Process runs one document supplied as a multipart `file`, `raw_text`,
// or `json_data` field, checked in that order.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondFormError(w, err)
		return
	}

	in, err := h.input(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.runner.Run(r.Context(), in)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Batch runs every multipart `files` entry as an independent run.
// Item failures are reported per item and do not fail the request.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondFormError(w, err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNoInput)
		return
	}

	if len(files) > h.cfg.BatchLimit {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: %d files, limit %d", ErrBatchTooLarge, len(files), h.cfg.BatchLimit))
		return
	}

	items := make([]BatchItem, len(files))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(h.cfg.workerCount(len(files)))

	for i, fh := range files {
		g.Go(func() error {
			items[i] = h.runFile(ctx, fh)
			return nil
		})
	}

	g.Wait()

	resp := BatchResponse{Items: items}
	for _, item := range items {
		if item.Error != "" {
			resp.Failed++
		} else {
			resp.Processed++
		}
	}

	h.logger.InfoContext(r.Context(), "batch complete",
		"files", len(files),
		"processed", resp.Processed,
		"failed", resp.Failed,
	)

	handlers.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) runFile(ctx context.Context, fh *multipart.FileHeader) BatchItem {
	item := BatchItem{Filename: fh.Filename}

	data, err := readFile(fh)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	in, err := FileInput(fh.Filename, data, fh.Header.Get("Content-Type"))
	if err != nil {
		item.Error = err.Error()
		return item
	}

	result, err := h.runner.Run(ctx, in)
	if err != nil {
		item.Error = err.Error()
		if errors.Is(err, ErrNotRecorded) {
			item.Result = result
		}
		return item
	}

	item.Result = result
	return item
}

func (h *Handler) input(r *http.Request) (Input, error) {
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Input{}, fmt.Errorf("read upload: %w", err)
		}
		return FileInput(header.Filename, data, header.Header.Get("Content-Type"))
	case !errors.Is(err, http.ErrMissingFile):
		return Input{}, fmt.Errorf("read upload: %w", err)
	}

	if text := r.FormValue("raw_text"); text != "" {
		return TextInput(text), nil
	}

	if raw := r.FormValue("json_data"); raw != "" {
		return JSONInput(raw)
	}

	return Input{}, ErrNoInput
}

func (h *Handler) respondFormError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: limit %s", ErrFileTooLarge, formatting.FormatBytes(maxErr.Limit, 0)))
		return
	}
	handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrNoInput, err))
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
