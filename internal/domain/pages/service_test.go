package pages

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"

	"lethe/app/internal/domain/styled"
	"lethe/app/internal/platform/dispatch"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceOptions{Renderer: &stubRenderer{}}); err == nil {
		t.Fatalf("expected error when repository is missing")
	}
	if _, err := NewService(ServiceOptions{Repository: newMemoryRepository(nil)}); err == nil {
		t.Fatalf("expected error when renderer is missing")
	}
}

func TestServiceRefreshSyncsExtractedPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository(nil)
	fetcher := &stubFetcher{path: "/tmp/tldr.zip"}
	extractor := &stubExtractor{pages: []Page{
		{Name: "tar", Platform: "common", Markdown: "# tar"},
		{Name: "apt", Platform: "linux", Markdown: "# apt"},
	}}

	svc := newTestService(t, repo, fetcher, extractor, nil)

	result, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Inserted != 2 {
		t.Fatalf("expected 2 inserted pages, got %+v", result)
	}
	if extractor.path != fetcher.path {
		t.Fatalf("expected extractor to read %q, got %q", fetcher.path, extractor.path)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestServiceRefreshPropagatesFetchError(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository(nil)
	extractor := &stubExtractor{}
	svc := newTestService(t, repo, &stubFetcher{err: errStub("network down")}, extractor, nil)

	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatalf("expected fetch error to be propagated")
	}
	if extractor.calls != 0 {
		t.Fatalf("expected extractor not to run after a failed download")
	}
}

func TestServiceSyncRejectsUnnamedPages(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository(nil)
	svc := newTestService(t, repo, nil, nil, nil)

	if _, err := svc.Sync(context.Background(), []Page{{Name: " ", Platform: "common"}}); err == nil {
		t.Fatalf("expected error for page without a name")
	}
}

func TestServiceGetPageRecordsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository(nil)
	svc := newTestService(t, repo, nil, nil, nil)

	if _, err := svc.Sync(ctx, []Page{{Name: "tar", Platform: "common", Markdown: "# tar"}}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	stored, _ := repo.FindByName(ctx, "tar", "common")

	page, err := svc.GetPage(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if page.Markdown != "# tar" {
		t.Fatalf("expected markdown to be returned, got %q", page.Markdown)
	}
	if len(repo.views) != 1 || repo.views[0] != stored.ID {
		t.Fatalf("expected one history entry for page %d, got %v", stored.ID, repo.views)
	}
}

func TestServiceGetPageMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemoryRepository(nil), nil, nil, nil)

	_, err := svc.GetPage(context.Background(), 42)
	if err == nil {
		t.Fatalf("expected error for missing page")
	}
	if !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestServiceFindPageFallsBackToCommon(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemoryRepository(nil)
	svc, err := NewService(ServiceOptions{
		Repository:  repo,
		Renderer:    &stubRenderer{},
		Dispatchers: dispatch.New(dispatch.Options{}),
		Platform:    "linux",
		Logger:      silentLogger(),
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	if _, err := svc.Sync(ctx, []Page{
		{Name: "tar", Platform: "common", Markdown: "common tar"},
		{Name: "apt", Platform: "linux", Markdown: "linux apt"},
	}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	page, err := svc.FindPage(ctx, "TAR", "")
	if err != nil {
		t.Fatalf("FindPage returned error: %v", err)
	}
	if page.Platform != "common" {
		t.Fatalf("expected fallback to common, got %q", page.Platform)
	}

	page, err = svc.FindPage(ctx, "apt", "")
	if err != nil {
		t.Fatalf("FindPage returned error: %v", err)
	}
	if page.Platform != "linux" {
		t.Fatalf("expected configured platform page, got %q", page.Platform)
	}

	if _, err := svc.FindPage(ctx, "apt", "osx"); !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound for explicit platform miss, got %v", err)
	}
}

func TestServiceRenderUsesRenderer(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{}
	svc := newTestService(t, newMemoryRepository(nil), nil, nil, renderer)

	text, ok := svc.Render(context.Background(), &Page{Markdown: "Archive files."})
	if !ok {
		t.Fatalf("expected render to succeed")
	}
	if text.String() != "Archive files." {
		t.Fatalf("unexpected render output %q", text.String())
	}

	renderer.fail = true
	if text, ok := svc.Render(context.Background(), &Page{Markdown: "`broken"}); ok || text != nil {
		t.Fatalf("expected no result when the renderer fails")
	}

	if _, ok := svc.Render(context.Background(), nil); ok {
		t.Fatalf("expected no result for nil page")
	}
}

func newTestService(t *testing.T, repo Repository, fetcher Fetcher, extractor Extractor, renderer Renderer) Service {
	t.Helper()

	if renderer == nil {
		renderer = &stubRenderer{}
	}

	svc, err := NewService(ServiceOptions{
		Repository:  repo,
		Fetcher:     fetcher,
		Extractor:   extractor,
		Renderer:    renderer,
		Dispatchers: dispatch.New(dispatch.Options{IOConcurrency: 2, ComputationConcurrency: 1}),
		Logger:      silentLogger(),
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

type stubFetcher struct {
	path string
	err  error
}

func (s *stubFetcher) Fetch(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

type stubExtractor struct {
	pages []Page
	err   error
	path  string
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, path string) ([]Page, error) {
	s.calls++
	s.path = path
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

type stubRenderer struct {
	fail bool
}

func (s *stubRenderer) Render(_ context.Context, markdown string) (*styled.Text, bool) {
	if s.fail {
		return nil, false
	}
	var text styled.Text
	text.Append(markdown, styled.Descriptive)
	return &text, true
}
