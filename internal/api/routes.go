package api

import (
	"net/http"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	groups := []routes.Group{
		pipeline.NewHandler(
			domain.Pipeline,
			&cfg.Pipeline,
			runtime.Logger,
			cfg.API.MaxUploadSizeBytes(),
		).Routes(),
		domain.Interactions.Handler().Routes(),
	}

	if runtime.Storage != nil {
		groups = append(groups, newArchiveHandler(runtime.Storage, runtime.Logger).routes())
	}

	patterns := routes.Register(mux, groups...)
	runtime.Logger.Debug("routes registered", "routes", patterns)
}
