package crm

import "context"

// Gateway is the abstract contract the reconciliation core depends on.
//
// FetchChanges and AckChanges together form the incremental sync boundary:
// the feed delivers entities changed since the given cursor in arrival
// order, and acknowledging a batch lets the server advance past it. All
// calls are blocking network calls; timeout and retry policy live inside
// the implementation, not in the callers.
type Gateway interface {
	// FetchChanges returns one batch of change events recorded after cursor,
	// along with the cursor for the next fetch. An empty batch returns the
	// input cursor unchanged.
	FetchChanges(ctx context.Context, cursor string) ([]ChangeEvent, string, error)

	// AckChanges confirms that every event up to and including cursor has
	// been processed. Called once per batch, never per entity.
	AckChanges(ctx context.Context, cursor string) error

	// GetContact fetches a single contact by id.
	GetContact(ctx context.Context, id int64) (Contact, error)

	// UpdateContactOwner updates exactly one attribute of a contact: its
	// owner. It returns the contact as stored after the update.
	UpdateContactOwner(ctx context.Context, id, ownerID int64) (Contact, error)

	// CreateDeal creates a new deal.
	CreateDeal(ctx context.Context, attrs NewDeal) (Deal, error)

	// ListStages lists pipeline stages matching the filter.
	ListStages(ctx context.Context, filter StageFilter) ([]Stage, error)

	// ListDeals lists deals matching the filter.
	ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error)

	// GetUser fetches a single user by id.
	GetUser(ctx context.Context, id int64) (User, error)

	// ListUsers lists users matching the filter.
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
}
