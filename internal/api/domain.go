package api

import (
	"github.com/JaimeStill/dispatch/internal/actions"
	"github.com/JaimeStill/dispatch/internal/classify"
	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/extract"
	"github.com/JaimeStill/dispatch/internal/interactions"
	"github.com/JaimeStill/dispatch/internal/pipeline"
	"github.com/JaimeStill/dispatch/pkg/textract"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Interactions interactions.System
	Pipeline     *pipeline.Pipeline
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	interactionsSystem := interactions.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	classifier := classify.New(runtime.Agent, runtime.Logger)

	extractors := extract.NewRegistry(
		extract.NewEmail(runtime.Agent, runtime.Logger),
		extract.NewStructured(runtime.Logger),
		extract.NewDocument(textract.PDF, runtime.Logger),
	)

	resolver := actions.New(
		actions.NewWebhook(&cfg.Actions, nil),
		&cfg.Actions,
		runtime.Logger,
	)

	opts := []pipeline.Option{
		pipeline.WithMetrics(pipeline.NewMetrics(runtime.Registry)),
	}
	if runtime.Storage != nil {
		opts = append(opts, pipeline.WithArchive(runtime.Storage))
	}

	pipelineSystem := pipeline.New(
		classifier,
		extractors,
		resolver,
		interactionsSystem,
		&cfg.Pipeline,
		runtime.Logger,
		opts...,
	)

	return &Domain{
		Interactions: interactionsSystem,
		Pipeline:     pipelineSystem,
	}
}
