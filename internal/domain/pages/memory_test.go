package pages

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type memoryKey struct {
	name     string
	platform string
}

// memoryRepository implements Repository over maps. Transact works on a copy and swaps it in
// only when fn succeeds.
type memoryRepository struct {
	mu       sync.Mutex
	pages    map[int64]Page
	views    []int64
	nextID   int64
	notifier ChangeNotifier

	deleteBatches []int
	failInsertAt  int
	inserts       int
}

var _ Repository = (*memoryRepository)(nil)

func newMemoryRepository(notifier ChangeNotifier) *memoryRepository {
	return &memoryRepository{pages: make(map[int64]Page), nextID: 1, notifier: notifier}
}

func (r *memoryRepository) Transact(ctx context.Context, fn func(ctx context.Context, tx SyncTx) error) error {
	r.mu.Lock()
	working := make(map[int64]Page, len(r.pages))
	for id, page := range r.pages {
		working[id] = page
	}
	tx := &memoryTx{repo: r, pages: working, nextID: r.nextID}
	r.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	r.pages = tx.pages
	r.nextID = tx.nextID
	r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.Notify()
	}
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id int64) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[id]
	if !ok {
		return nil, nil
	}
	return &page, nil
}

func (r *memoryRepository) FindByName(_ context.Context, name, platform string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, page := range r.pages {
		if page.Name == name && page.Platform == platform {
			p := page
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) RecordView(_ context.Context, id int64) error {
	r.mu.Lock()
	r.views = append(r.views, id)
	r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.Notify()
	}
	return nil
}

func (r *memoryRepository) Search(_ context.Context, term string) ([]PageIdentifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []PageIdentifier
	for _, page := range r.pages {
		if strings.Contains(page.Name, term) {
			results = append(results, page.Identifier())
		}
	}
	sortIdentifiers(results)
	return results, nil
}

func (r *memoryRepository) MostRecent(_ context.Context) ([]PageIdentifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[int64]bool{}
	var results []PageIdentifier
	for i := len(r.views) - 1; i >= 0; i-- {
		id := r.views[i]
		if seen[id] {
			continue
		}
		seen[id] = true
		if page, ok := r.pages[id]; ok {
			results = append(results, page.Identifier())
		}
	}
	return results, nil
}

func (r *memoryRepository) MostFrequent(_ context.Context) ([]PageIdentifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[int64]int{}
	for _, id := range r.views {
		counts[id]++
	}
	var results []PageIdentifier
	for id := range counts {
		if page, ok := r.pages[id]; ok {
			results = append(results, page.Identifier())
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return counts[results[i].ID] > counts[results[j].ID]
	})
	return results, nil
}

func (r *memoryRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.pages)), nil
}

func (r *memoryRepository) contents() map[memoryKey]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[memoryKey]string, len(r.pages))
	for _, page := range r.pages {
		out[memoryKey{page.Name, page.Platform}] = page.Markdown
	}
	return out
}

type memoryTx struct {
	repo   *memoryRepository
	pages  map[int64]Page
	nextID int64
}

func (tx *memoryTx) PageIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(tx.pages))
	for id := range tx.pages {
		ids = append(ids, id)
	}
	return ids, nil
}

func (tx *memoryTx) UpdatePage(_ context.Context, page Page) (int64, bool, error) {
	for id, existing := range tx.pages {
		if existing.Name == page.Name && existing.Platform == page.Platform {
			existing.Markdown = page.Markdown
			tx.pages[id] = existing
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (tx *memoryTx) InsertPage(_ context.Context, page Page) (int64, error) {
	tx.repo.inserts++
	if tx.repo.failInsertAt > 0 && tx.repo.inserts == tx.repo.failInsertAt {
		return 0, errStub("simulated insert fault")
	}

	id := tx.nextID
	tx.nextID++
	page.ID = id
	tx.pages[id] = page
	return id, nil
}

func (tx *memoryTx) DeletePages(_ context.Context, ids []int64) error {
	tx.repo.deleteBatches = append(tx.repo.deleteBatches, len(ids))
	for _, id := range ids {
		delete(tx.pages, id)
	}
	return nil
}

func sortIdentifiers(ids []PageIdentifier) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name == ids[j].Name {
			return ids[i].Platform < ids[j].Platform
		}
		return ids[i].Name < ids[j].Name
	})
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type errStub string

func (e errStub) Error() string {
	return string(e)
}
