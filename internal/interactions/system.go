package interactions

import (
	"context"

	"github.com/JaimeStill/dispatch/pkg/pagination"
)

// System defines the public contract for the interaction record store.
type System interface {
	Handler() *Handler

	// Append writes a completed run as a new record with the next sequence id.
	Append(ctx context.Context, cmd AppendCommand) (*Interaction, error)
	// Latest returns the most recently appended record, or ErrNotFound when empty.
	Latest(ctx context.Context) (*Interaction, error)
	Find(ctx context.Context, id int64) (*Interaction, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Interaction], error)
}
