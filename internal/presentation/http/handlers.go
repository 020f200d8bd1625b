package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"lethe/app/internal/data/database"
	"lethe/app/internal/domain/pages"
	"lethe/app/internal/domain/styled"
)

type searchInput struct {
	Query string `query:"q" doc:"Term matched against page names"`
}

type pageInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Page id"`
}

type identifierView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

type identifiersResponse struct {
	Body struct {
		Pages []identifierView `json:"pages"`
	}
}

type spanView struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type pageBody struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Platform string     `json:"platform"`
	Markdown string     `json:"markdown"`
	Rendered bool       `json:"rendered"`
	Spans    []spanView `json:"spans,omitempty"`
}

type pageResponse struct {
	Body pageBody
}

type syncResponse struct {
	Body struct {
		Updated  int `json:"updated"`
		Inserted int `json:"inserted"`
		Deleted  int `json:"deleted"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Pages    int64  `json:"pages"`
	}
}

func (s *Server) registerSearchRoute() {
	huma.Get(s.api, "/pages", s.searchHandler, func(op *huma.Operation) {
		op.Summary = "Search pages by name"
	})
}

func (s *Server) registerPageRoute() {
	huma.Get(s.api, "/pages/{id}", s.pageHandler, func(op *huma.Operation) {
		op.Summary = "Fetch a page with its rendered spans"
	})
}

func (s *Server) registerPageHTMLRoute() {
	huma.Get(s.api, "/pages/{id}/html", s.pageHTMLHandler, func(op *huma.Operation) {
		op.Summary = "Fetch a rendered page as HTML"
		op.Responses = map[string]*huma.Response{
			"200": {
				Description: stdhttp.StatusText(stdhttp.StatusOK),
				Content:     map[string]*huma.MediaType{htmlContentType: {Schema: &huma.Schema{Type: "string"}}},
			},
		}
	})
}

func (s *Server) registerHistoryRoutes() {
	huma.Get(s.api, "/history/recent", s.mostRecentHandler, func(op *huma.Operation) {
		op.Summary = "List viewed pages, latest first"
	})
	huma.Get(s.api, "/history/frequent", s.mostFrequentHandler, func(op *huma.Operation) {
		op.Summary = "List viewed pages, most viewed first"
	})
}

func (s *Server) registerSyncRoute() {
	huma.Post(s.api, "/sync", s.syncHandler, func(op *huma.Operation) {
		op.Summary = "Download the page archive and reconcile the cache"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) searchHandler(ctx context.Context, input *searchInput) (*identifiersResponse, error) {
	term := strings.TrimSpace(input.Query)
	if term == "" {
		return nil, huma.Error400BadRequest("query parameter q is required")
	}

	results, err := s.pages.Search(ctx, term)
	if err != nil {
		return nil, s.apiError(ctx, err, "search request failed", logrus.Fields{"query": term})
	}
	return newIdentifiersResponse(results), nil
}

func (s *Server) pageHandler(ctx context.Context, input *pageInput) (*pageResponse, error) {
	page, err := s.pages.GetPage(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading page", logrus.Fields{"page_id": input.ID})
	}

	resp := &pageResponse{Body: pageBody{
		ID:       page.ID,
		Name:     page.Name,
		Platform: page.Platform,
		Markdown: page.Markdown,
	}}

	if text, ok := s.pages.Render(ctx, page); ok {
		resp.Body.Rendered = true
		resp.Body.Spans = newSpanViews(text)
	}
	return resp, nil
}

func (s *Server) pageHTMLHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	page, err := s.pages.GetPage(ctx, input.ID)
	if err != nil {
		if eris.Is(err, pages.ErrPageNotFound) {
			return s.renderErrorPage(ctx, stdhttp.StatusNotFound, "No page has that id.")
		}
		s.recordError(ctx, err, "loading page", logrus.Fields{"page_id": input.ID})
		return s.renderErrorPage(ctx, stdhttp.StatusInternalServerError, "The page could not be loaded right now.")
	}

	text, ok := s.pages.Render(ctx, page)
	if !ok {
		text = &styled.Text{}
	}

	resp, err := renderHTML(ctx, stdhttp.StatusOK, pageView(page, text))
	if err != nil {
		s.recordError(ctx, err, "rendering page view", logrus.Fields{"page_id": page.ID})
		return s.renderErrorPage(ctx, stdhttp.StatusInternalServerError, "The page could not be rendered right now.")
	}
	return resp, nil
}

func (s *Server) mostRecentHandler(ctx context.Context, _ *struct{}) (*identifiersResponse, error) {
	results, err := s.pages.MostRecent(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing most recent pages", nil)
	}
	return newIdentifiersResponse(results), nil
}

func (s *Server) mostFrequentHandler(ctx context.Context, _ *struct{}) (*identifiersResponse, error) {
	results, err := s.pages.MostFrequent(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing most frequent pages", nil)
	}
	return newIdentifiersResponse(results), nil
}

func (s *Server) syncHandler(ctx context.Context, _ *struct{}) (*syncResponse, error) {
	result, err := s.pages.Refresh(ctx)
	if err != nil {
		if eris.Is(err, pages.ErrNoPages) {
			s.recordError(ctx, err, "archive contained no pages", nil)
			return nil, huma.Error502BadGateway("the page archive contained no pages")
		}
		return nil, s.apiError(ctx, err, "refreshing page cache", nil)
	}

	resp := &syncResponse{}
	resp.Body.Updated = result.Updated
	resp.Body.Inserted = result.Inserted
	resp.Body.Deleted = result.Deleted
	return resp, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	degrade := func(err error, message string) {
		s.recordError(ctx, err, message, nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
	}

	if s.db != nil {
		sqlDB, err := database.SQLDB(s.db)
		if err != nil {
			degrade(err, "obtaining sql db")
			return resp, nil
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			degrade(err, "pinging database")
			return resp, nil
		}
	}

	count, err := s.pages.Count(ctx)
	if err != nil {
		degrade(err, "counting pages")
		return resp, nil
	}
	resp.Body.Pages = count

	return resp, nil
}

func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	if eris.Is(err, pages.ErrPageNotFound) {
		return huma.Error404NotFound("page not found")
	}
	if ctx.Err() != nil {
		return huma.NewError(499, "request cancelled")
	}

	s.recordError(ctx, err, message, fields)
	return huma.Error500InternalServerError(message)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error()).WithField("component", "http")
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func newIdentifiersResponse(results []pages.PageIdentifier) *identifiersResponse {
	resp := &identifiersResponse{}
	resp.Body.Pages = newIdentifierViews(results)
	return resp
}

func newIdentifierViews(results []pages.PageIdentifier) []identifierView {
	views := make([]identifierView, 0, len(results))
	for _, result := range results {
		views = append(views, identifierView{ID: result.ID, Name: result.Name, Platform: result.Platform})
	}
	return views
}

func newSpanViews(text *styled.Text) []spanView {
	spans := text.Spans()
	views := make([]spanView, 0, len(spans))
	for _, span := range spans {
		views = append(views, spanView{Text: span.Text, Style: span.Style.String()})
	}
	return views
}
