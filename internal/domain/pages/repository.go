package pages

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrPageNotFound indicates no page matched the requested id or name.
	ErrPageNotFound = eris.New("page not found")
	// ErrNoPages indicates the local cache is empty.
	ErrNoPages = eris.New("no pages cached")
)

// SyncTx is the unit of work a reconciliation pass runs against. All calls made on a SyncTx
// commit or roll back together.
type SyncTx interface {
	// PageIDs returns the ids of every stored page.
	PageIDs(ctx context.Context) ([]int64, error)
	// UpdatePage rewrites the markdown of the page matching (name, platform) and reports the
	// id of the matched row. ok is false when no row matched.
	UpdatePage(ctx context.Context, page Page) (id int64, ok bool, err error)
	// InsertPage stores a new page and returns its id.
	InsertPage(ctx context.Context, page Page) (int64, error)
	// DeletePages removes the pages with the given ids.
	DeletePages(ctx context.Context, ids []int64) error
}

// Repository defines persistence operations supported by the pages domain.
type Repository interface {
	Transact(ctx context.Context, fn func(ctx context.Context, tx SyncTx) error) error
	GetByID(ctx context.Context, id int64) (*Page, error)
	FindByName(ctx context.Context, name, platform string) (*Page, error)
	RecordView(ctx context.Context, id int64) error
	Search(ctx context.Context, term string) ([]PageIdentifier, error)
	MostRecent(ctx context.Context) ([]PageIdentifier, error)
	MostFrequent(ctx context.Context) ([]PageIdentifier, error)
	Count(ctx context.Context) (int64, error)
}

// Fetcher downloads the page archive and returns its local path.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Extractor reads the pages contained in a downloaded archive.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}
