package pages

import "time"

// Page is a single cheat-sheet entry identified by command name and target platform.
type Page struct {
	ID       int64
	Name     string
	Platform string
	Markdown string
}

// Identifier returns the listing projection of the page.
func (p Page) Identifier() PageIdentifier {
	return PageIdentifier{ID: p.ID, Name: p.Name, Platform: p.Platform}
}

// PageIdentifier is the lightweight projection used by listings and search results.
type PageIdentifier struct {
	ID       int64
	Name     string
	Platform string
}

// HistoryEntry records a single view of a page.
type HistoryEntry struct {
	PageID   int64
	ViewedAt time.Time
}

// SyncResult summarises one reconciliation pass.
type SyncResult struct {
	Updated  int
	Inserted int
	Deleted  int
}

// Snapshot is one emission of a continuously observed query.
type Snapshot struct {
	Pages []PageIdentifier
	Err   error
}
