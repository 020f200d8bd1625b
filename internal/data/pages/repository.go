package pages

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainpages "lethe/app/internal/domain/pages"
)

const (
	searchQuery = `SELECT id, name, platform FROM pages
WHERE name LIKE ? ESCAPE '\'
ORDER BY CASE
	WHEN lower(name) = lower(?) THEN 0
	WHEN name LIKE ? ESCAPE '\' THEN 1
	ELSE 2
END, name, platform`

	mostRecentQuery = `SELECT p.id, p.name, p.platform FROM history h
JOIN pages p ON p.id = h.page_id
GROUP BY p.id, p.name, p.platform
ORDER BY MAX(h.id) DESC, p.name, p.platform`

	mostFrequentQuery = `SELECT p.id, p.name, p.platform FROM history h
JOIN pages p ON p.id = h.page_id
GROUP BY p.id, p.name, p.platform
ORDER BY COUNT(h.id) DESC, MAX(h.id) DESC, p.name, p.platform`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository persists pages and their view history using a Gorm database connection.
type Repository struct {
	db       *gorm.DB
	logger   *logrus.Logger
	notifier domainpages.ChangeNotifier
	now      func() time.Time
}

// NewRepository constructs a Gorm-backed repository. The notifier, when set, is told about
// every committed write.
func NewRepository(db *gorm.DB, logger *logrus.Logger, notifier domainpages.ChangeNotifier) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, logger: logger, notifier: notifier, now: time.Now}, nil
}

var _ domainpages.Repository = (*Repository)(nil)

// Transact runs fn inside one database transaction. Any error from fn rolls back every
// statement it issued.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context, tx domainpages.SyncTx) error) error {
	if fn == nil {
		return eris.New("transaction func is required")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &syncTx{db: tx})
	})
	if err != nil {
		r.logError(nil, err, "page transaction rolled back")
		return eris.Wrap(err, "running page transaction")
	}

	r.notify()
	return nil
}

// GetByID returns the page with the given id or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domainpages.Page, error) {
	var record PageRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"page_id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %d", id)
	}

	return toDomainPage(&record), nil
}

// FindByName returns the page for (name, platform) or nil when it does not exist.
func (r *Repository) FindByName(ctx context.Context, name, platform string) (*domainpages.Page, error) {
	var record PageRecord
	err := r.db.WithContext(ctx).First(&record, "name = ? AND platform = ?", name, platform).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"name": name, "platform": platform}, err, "fetching page by name")
		return nil, eris.Wrapf(err, "fetching page by name: %s/%s", platform, name)
	}

	return toDomainPage(&record), nil
}

// RecordView appends a history entry for the page.
func (r *Repository) RecordView(ctx context.Context, id int64) error {
	entry := &HistoryRecord{PageID: id, ViewedAt: r.now().UTC()}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		r.logError(logrus.Fields{"page_id": id}, err, "recording page view")
		return eris.Wrapf(err, "recording view of page %d", id)
	}

	r.notify()
	return nil
}

// Search returns pages whose name contains term: exact matches first, then prefix matches,
// then the rest, each group ordered by name.
func (r *Repository) Search(ctx context.Context, term string) ([]domainpages.PageIdentifier, error) {
	escaped := likeEscaper.Replace(term)
	return r.identifiers(ctx, "searching pages", searchQuery, "%"+escaped+"%", term, escaped+"%")
}

// MostRecent returns viewed pages, latest view first.
func (r *Repository) MostRecent(ctx context.Context) ([]domainpages.PageIdentifier, error) {
	return r.identifiers(ctx, "listing most recent pages", mostRecentQuery)
}

// MostFrequent returns viewed pages, most views first.
func (r *Repository) MostFrequent(ctx context.Context) ([]domainpages.PageIdentifier, error) {
	return r.identifiers(ctx, "listing most frequent pages", mostFrequentQuery)
}

// Count returns the total number of cached pages.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		r.logError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

func (r *Repository) identifiers(ctx context.Context, message, query string, args ...any) ([]domainpages.PageIdentifier, error) {
	var rows []identifierRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		r.logError(nil, err, message)
		return nil, eris.Wrap(err, message)
	}

	results := make([]domainpages.PageIdentifier, 0, len(rows))
	for _, row := range rows {
		results = append(results, domainpages.PageIdentifier{ID: row.ID, Name: row.Name, Platform: row.Platform})
	}
	return results, nil
}

func (r *Repository) notify() {
	if r.notifier != nil {
		r.notifier.Notify()
	}
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainPage(record *PageRecord) *domainpages.Page {
	if record == nil {
		return nil
	}

	return &domainpages.Page{
		ID:       record.ID,
		Name:     record.Name,
		Platform: record.Platform,
		Markdown: record.Markdown,
	}
}

// syncTx is the Gorm-backed unit of work handed to reconciliation.
type syncTx struct {
	db *gorm.DB
}

var _ domainpages.SyncTx = (*syncTx)(nil)

func (t *syncTx) PageIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := t.db.WithContext(ctx).Model(&PageRecord{}).Pluck("id", &ids).Error; err != nil {
		return nil, eris.Wrap(err, "listing page ids")
	}
	return ids, nil
}

func (t *syncTx) UpdatePage(ctx context.Context, page domainpages.Page) (int64, bool, error) {
	res := t.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("name = ? AND platform = ?", page.Name, page.Platform).
		Update("markdown", page.Markdown)
	if res.Error != nil {
		return 0, false, eris.Wrap(res.Error, "updating page")
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var ids []int64
	err := t.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("name = ? AND platform = ?", page.Name, page.Platform).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, eris.Wrap(err, "resolving updated page id")
	}
	if len(ids) == 0 {
		return 0, false, eris.Errorf("updated page %s/%s has no id", page.Platform, page.Name)
	}

	return ids[0], true, nil
}

func (t *syncTx) InsertPage(ctx context.Context, page domainpages.Page) (int64, error) {
	record := &PageRecord{
		Name:     page.Name,
		Platform: page.Platform,
		Markdown: page.Markdown,
	}
	if err := t.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, eris.Wrap(err, "inserting page")
	}
	return record.ID, nil
}

func (t *syncTx) DeletePages(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Delete(&PageRecord{}).Error; err != nil {
		return eris.Wrap(err, "deleting pages")
	}
	return nil
}
