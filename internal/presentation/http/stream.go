package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"lethe/app/internal/domain/pages"
)

// snapshotEvent is sent whenever an observed listing is recomputed.
type snapshotEvent struct {
	Pages []identifierView `json:"pages"`
}

// streamErrorEvent reports a failed recomputation; the stream stays open.
type streamErrorEvent struct {
	Message string `json:"message"`
}

var streamEvents = map[string]any{
	"snapshot": snapshotEvent{},
	"error":    streamErrorEvent{},
}

func (s *Server) registerStreamRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "stream-recent-history",
		Method:      stdhttp.MethodGet,
		Path:        "/history/recent/stream",
		Summary:     "Stream the most recent pages whenever they change",
	}, streamEvents, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		s.streamSnapshots(ctx, send, s.pages.WatchMostRecent)
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "stream-frequent-history",
		Method:      stdhttp.MethodGet,
		Path:        "/history/frequent/stream",
		Summary:     "Stream the most viewed pages whenever they change",
	}, streamEvents, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		s.streamSnapshots(ctx, send, s.pages.WatchMostFrequent)
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "stream-search",
		Method:      stdhttp.MethodGet,
		Path:        "/pages/stream",
		Summary:     "Stream search results whenever the cache changes",
	}, streamEvents, func(ctx context.Context, input *searchInput, send sse.Sender) {
		term := strings.TrimSpace(input.Query)
		if term == "" {
			_ = send.Data(streamErrorEvent{Message: "query parameter q is required"})
			return
		}
		s.streamSnapshots(ctx, send, func(ctx context.Context) <-chan pages.Snapshot {
			return s.pages.WatchSearch(ctx, term)
		})
	})
}

// streamSnapshots forwards snapshots until the watch ends or the client goes away. The watch
// is cancelled on return.
func (s *Server) streamSnapshots(ctx context.Context, send sse.Sender, watch func(context.Context) <-chan pages.Snapshot) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for snapshot := range watch(ctx) {
		var err error
		if snapshot.Err != nil {
			s.recordError(ctx, snapshot.Err, "recomputing streamed listing", nil)
			err = send.Data(streamErrorEvent{Message: "listing could not be refreshed"})
		} else {
			err = send.Data(snapshotEvent{Pages: newIdentifierViews(snapshot.Pages)})
		}
		if err != nil {
			return
		}
	}
}
