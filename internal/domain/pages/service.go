package pages

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"lethe/app/internal/domain/styled"
	"lethe/app/internal/platform/dispatch"
)

// DefaultPlatform is consulted when a page is requested without a platform.
const DefaultPlatform = "common"

// Renderer converts page markdown into styled text. ok is false when the page could not be
// rendered; callers skip the display in that case.
type Renderer interface {
	Render(ctx context.Context, markdown string) (text *styled.Text, ok bool)
}

// Service defines the page operations used by the presentation layers.
type Service interface {
	Refresh(ctx context.Context) (SyncResult, error)
	Sync(ctx context.Context, pages []Page) (SyncResult, error)
	GetPage(ctx context.Context, id int64) (*Page, error)
	FindPage(ctx context.Context, name, platform string) (*Page, error)
	Render(ctx context.Context, page *Page) (*styled.Text, bool)
	Search(ctx context.Context, term string) ([]PageIdentifier, error)
	MostRecent(ctx context.Context) ([]PageIdentifier, error)
	MostFrequent(ctx context.Context) ([]PageIdentifier, error)
	WatchSearch(ctx context.Context, term string) <-chan Snapshot
	WatchMostRecent(ctx context.Context) <-chan Snapshot
	WatchMostFrequent(ctx context.Context) <-chan Snapshot
	Count(ctx context.Context) (int64, error)
}

// ServiceOptions wires the page service with its collaborators.
type ServiceOptions struct {
	Repository  Repository
	Fetcher     Fetcher
	Extractor   Extractor
	Renderer    Renderer
	Changes     ChangeSource
	Dispatchers dispatch.Dispatchers
	Platform    string
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
}

type service struct {
	repo      Repository
	fetcher   Fetcher
	extractor Extractor
	renderer  Renderer
	changes   ChangeSource
	io        *dispatch.Pool
	compute   *dispatch.Pool
	platform  string
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService validates the options and returns the page service.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Renderer == nil {
		return nil, eris.New("markdown renderer is required")
	}

	platform := strings.TrimSpace(opts.Platform)
	if platform == "" {
		platform = DefaultPlatform
	}

	return &service{
		repo:      opts.Repository,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		renderer:  opts.Renderer,
		changes:   opts.Changes,
		io:        opts.Dispatchers.IO,
		compute:   opts.Dispatchers.Computation,
		platform:  platform,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

// Refresh downloads the archive, extracts its pages and reconciles them into storage.
func (s *service) Refresh(ctx context.Context) (SyncResult, error) {
	if s.fetcher == nil || s.extractor == nil {
		return SyncResult{}, eris.New("archive fetcher and extractor are required to refresh")
	}

	var path string
	err := s.io.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		path, fetchErr = s.fetcher.Fetch(ctx)
		return fetchErr
	})
	if err != nil {
		s.recordError(nil, err, "downloading page archive")
		return SyncResult{}, eris.Wrap(err, "downloading page archive")
	}

	var incoming []Page
	err = s.compute.Do(ctx, func(ctx context.Context) error {
		var extractErr error
		incoming, extractErr = s.extractor.Extract(ctx, path)
		return extractErr
	})
	if err != nil {
		s.recordError(logrus.Fields{"path": path}, err, "extracting page archive")
		return SyncResult{}, eris.Wrapf(err, "extracting page archive: %s", path)
	}

	result, err := s.Sync(ctx, incoming)
	if err != nil {
		return SyncResult{}, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "pages.refresh",
			"path":      path,
			"pages":     len(incoming),
			"updated":   result.Updated,
			"inserted":  result.Inserted,
			"deleted":   result.Deleted,
		}).Info("page cache refreshed")
	}

	return result, nil
}

// Sync reconciles storage against the supplied snapshot inside one transaction.
func (s *service) Sync(ctx context.Context, incoming []Page) (SyncResult, error) {
	normalised := make([]Page, 0, len(incoming))
	for _, page := range incoming {
		name := strings.TrimSpace(page.Name)
		platform := strings.TrimSpace(page.Platform)
		if name == "" || platform == "" {
			err := eris.Errorf("page name and platform are required: %q/%q", page.Platform, page.Name)
			s.recordError(nil, err, "validating sync input")
			return SyncResult{}, err
		}
		normalised = append(normalised, Page{Name: name, Platform: platform, Markdown: page.Markdown})
	}

	var result SyncResult
	err := s.io.Do(ctx, func(ctx context.Context) error {
		return s.repo.Transact(ctx, func(ctx context.Context, tx SyncTx) error {
			var reconcileErr error
			result, reconcileErr = Reconcile(ctx, tx, normalised)
			return reconcileErr
		})
	})
	if err != nil {
		s.recordError(logrus.Fields{"pages": len(normalised)}, err, "syncing pages")
		return SyncResult{}, eris.Wrap(err, "syncing pages")
	}

	return result, nil
}

// GetPage loads the page and records that it was viewed.
func (s *service) GetPage(ctx context.Context, id int64) (*Page, error) {
	if id <= 0 {
		return nil, eris.Errorf("invalid page id %d", id)
	}

	var page *Page
	err := s.io.Do(ctx, func(ctx context.Context) error {
		var getErr error
		page, getErr = s.repo.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if page == nil {
			return eris.Wrapf(ErrPageNotFound, "page id %d", id)
		}
		return s.repo.RecordView(ctx, id)
	})
	if err != nil {
		if !eris.Is(err, ErrPageNotFound) {
			s.recordError(logrus.Fields{"page_id": id}, err, "loading page")
		}
		return nil, eris.Wrapf(err, "loading page %d", id)
	}

	return page, nil
}

// FindPage resolves a page by command name. An empty platform tries the configured platform
// first and falls back to the common pages.
func (s *service) FindPage(ctx context.Context, name, platform string) (*Page, error) {
	trimmedName := strings.ToLower(strings.TrimSpace(name))
	if trimmedName == "" {
		return nil, eris.New("page name is required")
	}

	candidates := []string{strings.TrimSpace(platform)}
	if candidates[0] == "" {
		candidates = []string{s.platform}
		if s.platform != DefaultPlatform {
			candidates = append(candidates, DefaultPlatform)
		}
	}

	for _, candidate := range candidates {
		var page *Page
		err := s.io.Do(ctx, func(ctx context.Context) error {
			var findErr error
			page, findErr = s.repo.FindByName(ctx, trimmedName, candidate)
			return findErr
		})
		if err != nil {
			s.recordError(logrus.Fields{"name": trimmedName, "platform": candidate}, err, "finding page")
			return nil, eris.Wrapf(err, "finding page %s/%s", candidate, trimmedName)
		}
		if page != nil {
			return s.GetPage(ctx, page.ID)
		}
	}

	return nil, eris.Wrapf(ErrPageNotFound, "page %s", trimmedName)
}

// Render converts the page markdown on the computation pool.
func (s *service) Render(ctx context.Context, page *Page) (*styled.Text, bool) {
	if page == nil {
		return nil, false
	}

	var (
		text *styled.Text
		ok   bool
	)
	err := s.compute.Do(ctx, func(ctx context.Context) error {
		text, ok = s.renderer.Render(ctx, page.Markdown)
		return nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"page_id": page.ID}).WithError(err).Warn("rendering page skipped")
		}
		return nil, false
	}

	return text, ok
}

func (s *service) Search(ctx context.Context, term string) ([]PageIdentifier, error) {
	return s.query(ctx, "searching pages", func(ctx context.Context) ([]PageIdentifier, error) {
		return s.repo.Search(ctx, strings.TrimSpace(term))
	})
}

func (s *service) MostRecent(ctx context.Context) ([]PageIdentifier, error) {
	return s.query(ctx, "listing most recent pages", s.repo.MostRecent)
}

func (s *service) MostFrequent(ctx context.Context) ([]PageIdentifier, error) {
	return s.query(ctx, "listing most frequent pages", s.repo.MostFrequent)
}

func (s *service) WatchSearch(ctx context.Context, term string) <-chan Snapshot {
	return watch(ctx, s.changes, func(ctx context.Context) ([]PageIdentifier, error) {
		return s.Search(ctx, term)
	})
}

func (s *service) WatchMostRecent(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.changes, s.MostRecent)
}

func (s *service) WatchMostFrequent(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.changes, s.MostFrequent)
}

func (s *service) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.io.Do(ctx, func(ctx context.Context) error {
		var countErr error
		count, countErr = s.repo.Count(ctx)
		return countErr
	})
	if err != nil {
		s.recordError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}
	return count, nil
}

func (s *service) query(ctx context.Context, message string, fn queryFunc) ([]PageIdentifier, error) {
	var results []PageIdentifier
	err := s.io.Do(ctx, func(ctx context.Context) error {
		var queryErr error
		results, queryErr = fn(ctx)
		return queryErr
	})
	if err != nil {
		if ctx.Err() == nil {
			s.recordError(nil, err, message)
		}
		return nil, eris.Wrap(err, message)
	}
	return results, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
