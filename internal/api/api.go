// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/infrastructure"
	"github.com/JaimeStill/dispatch/pkg/middleware"
	"github.com/JaimeStill/dispatch/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When authentication is enabled the OIDC provider is discovered here, so an
// unreachable issuer fails startup.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.API.Auth.Enabled {
		verifier, err := middleware.NewVerifier(runtime.Lifecycle.Context(), &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth verifier: %w", err)
		}
		m.Use(middleware.Auth(verifier, runtime.Logger))
	}

	return m, nil
}
