package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/dispatch/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name        string
		cfg         storage.Config
		wantErr     string
		wantEnabled bool
	}{
		{name: "disabled by default", cfg: storage.Config{}},
		{name: "connection string", cfg: storage.Config{ConnectionString: "conn"}, wantEnabled: true},
		{name: "service url", cfg: storage.Config{ServiceURL: "https://acct.blob.core.windows.net/"}, wantEnabled: true},
		{name: "bad service url", cfg: storage.Config{ServiceURL: "acct.blob"}, wantErr: "invalid service_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("finalize failed: %v", err)
			}
			if tt.cfg.ContainerName != "inbound" {
				t.Errorf("container_name: got %s, want inbound", tt.cfg.ContainerName)
			}
			if got := tt.cfg.Enabled(); got != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", got, tt.wantEnabled)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_CONTAINER", "uploads")
	t.Setenv("TEST_CONN", "override-connection")

	env := &storage.Env{
		ContainerName:    "TEST_CONTAINER",
		ConnectionString: "TEST_CONN",
		ServiceURL:       "TEST_SERVICE_URL_UNSET",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "uploads" {
		t.Errorf("container_name: got %s, want uploads", cfg.ContainerName)
	}
	if cfg.ConnectionString != "override-connection" {
		t.Errorf("connection_string: got %s, want override-connection", cfg.ConnectionString)
	}
	if cfg.ServiceURL != "" {
		t.Errorf("service_url: got %s, want empty", cfg.ServiceURL)
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{
		ContainerName:    "inbound",
		ConnectionString: "base-conn",
	}

	base.Merge(&storage.Config{ServiceURL: "https://acct.blob.core.windows.net/"})

	if base.ConnectionString != "base-conn" {
		t.Errorf("connection_string should remain base-conn, got %s", base.ConnectionString)
	}
	if base.ServiceURL != "https://acct.blob.core.windows.net/" {
		t.Errorf("service_url: got %s", base.ServiceURL)
	}
}

func TestNew(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		ContainerName:    "inbound",
		ConnectionString: azuriteConnString,
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}

	_, err = storage.New(&storage.Config{
		ContainerName:    "inbound",
		ConnectionString: "not-a-connection-string",
	}, discardLogger())
	if err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("operation failed: %w", storage.ErrNotFound), http.StatusNotFound},
		{"container missing", errors.Join(storage.ErrContainerMissing, errors.New("404")), http.StatusServiceUnavailable},
		{"unknown", errors.New("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		ContainerName:    "inbound",
		ConnectionString: azuriteConnString,
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "inbound/../secrets", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "text/plain"); !errors.Is(err, tt.want) {
				t.Errorf("Upload err = %v, want %v", err, tt.want)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download err = %v, want %v", err, tt.want)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Exists err = %v, want %v", err, tt.want)
			}
		})
	}
}
