package interactions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/dispatch/pkg/pagination"
	"github.com/JaimeStill/dispatch/pkg/query"
	"github.com/JaimeStill/dispatch/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a PostgreSQL-backed interaction store implementing System.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "interactions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Append(ctx context.Context, cmd AppendCommand) (*Interaction, error) {
	args, err := insertArgs(cmd)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO interactions(run_id, source_type, filename, format, intent, routed_agent, final_action, input_metadata, agent_outputs, chained_actions, decision_traces)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + returning

	i, err := repository.QueryOne(ctx, r.db, q, args, scanInteraction)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "interaction recorded",
		"id", i.ID,
		"run_id", i.InputMetadata.RunID,
		"intent", i.Classification.Intent,
	)
	return &i, nil
}

func (r *repo) Latest(ctx context.Context) (*Interaction, error) {
	q, args := query.NewBuilder(projection, defaultSort).BuildFirst()

	i, err := repository.QueryOne(ctx, r.db, q, args, scanInteraction)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &i, nil
}

func (r *repo) Find(ctx context.Context, id int64) (*Interaction, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	i, err := repository.QueryOne(ctx, r.db, q, args, scanInteraction)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &i, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Interaction], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "FinalAction")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)

	type snapshot struct {
		total int
		items []Interaction
	}

	snap, err := repository.ReadSnapshot(ctx, r.db, func(q repository.Querier) (snapshot, error) {
		total, err := repository.Count(ctx, q, countSQL, countArgs)
		if err != nil {
			return snapshot{}, fmt.Errorf("count interactions: %w", err)
		}

		items, err := repository.QueryMany(ctx, q, pageSQL, pageArgs, scanInteraction)
		if err != nil {
			return snapshot{}, fmt.Errorf("query interactions: %w", err)
		}
		return snapshot{total: total, items: items}, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	result := pagination.NewPageResult(snap.items, snap.total, page.Page, page.PageSize)
	return &result, nil
}
