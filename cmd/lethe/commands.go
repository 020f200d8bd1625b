package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lethe/app/internal/config"
	"lethe/app/internal/domain/pages"
	"lethe/app/internal/presentation/terminal"
)

// session is one opened application: the page service plus whatever owns its resources.
type session struct {
	service pages.Service
	handler stdhttp.Handler
	config  config.Config
	logger  *logrus.Logger
	close   func()
}

type application struct {
	stdout  io.Writer
	stderr  io.Writer
	noColor bool
	open    func(ctx context.Context) (*session, error)
}

func (a *application) printer() *terminal.Printer {
	return terminal.NewPrinter(a.stdout, terminal.Options{NoColor: a.noColor})
}

// withSession opens the application for the duration of one command.
func (a *application) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	return fn(ctx, s)
}

func newRootCommand(app *application) *cobra.Command {
	root := &cobra.Command{
		Use:           "lethe",
		Short:         "Offline tldr pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "write pages without terminal styling")

	root.AddCommand(
		newSyncCommand(app),
		newShowCommand(app),
		newSearchCommand(app),
		newHistoryCommand(app, "recent", "List viewed pages, latest first", pages.Service.MostRecent, pages.Service.WatchMostRecent),
		newHistoryCommand(app, "frequent", "List viewed pages, most viewed first", pages.Service.MostFrequent, pages.Service.WatchMostFrequent),
		newCountCommand(app),
		newServeCommand(app),
	)
	return root
}

func newSyncCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the page archive and update the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				result, err := s.service.Refresh(ctx)
				if err != nil {
					return eris.Wrap(err, "syncing pages")
				}
				return app.printer().Println(fmt.Sprintf(
					"%d updated, %d inserted, %d deleted", result.Updated, result.Inserted, result.Deleted))
			})
		},
	}
}

func newShowCommand(app *application) *cobra.Command {
	var (
		platform string
		id       int64
	)

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Render a page",
		Args: func(cmd *cobra.Command, args []string) error {
			if id > 0 {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				var (
					page *pages.Page
					err  error
				)
				if id > 0 {
					page, err = s.service.GetPage(ctx, id)
				} else {
					page, err = s.service.FindPage(ctx, args[0], platform)
				}
				if err != nil {
					if eris.Is(err, pages.ErrPageNotFound) {
						return eris.Wrap(err, "no such page; run `lethe sync` to refresh the cache")
					}
					return err
				}

				text, ok := s.service.Render(ctx, page)
				if !ok {
					fmt.Fprintf(app.stderr, "%s (%s) could not be rendered\n", page.Name, page.Platform)
					return nil
				}
				return app.printer().Print(text)
			})
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "platform to look the page up on (default: configured platform, then common)")
	cmd.Flags().Int64Var(&id, "id", 0, "show the page with this id instead of looking it up by name")
	return cmd
}

func newSearchCommand(app *application) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search pages by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := args[0]
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				return app.list(ctx, opts,
					func(ctx context.Context) ([]pages.PageIdentifier, error) { return s.service.Search(ctx, term) },
					func(ctx context.Context) <-chan pages.Snapshot { return s.service.WatchSearch(ctx, term) },
				)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newHistoryCommand(
	app *application,
	use, short string,
	query func(pages.Service, context.Context) ([]pages.PageIdentifier, error),
	watch func(pages.Service, context.Context) <-chan pages.Snapshot,
) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				return app.list(ctx, opts,
					func(ctx context.Context) ([]pages.PageIdentifier, error) { return query(s.service, ctx) },
					func(ctx context.Context) <-chan pages.Snapshot { return watch(s.service, ctx) },
				)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newCountCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of cached pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				count, err := s.service.Count(ctx)
				if err != nil {
					return err
				}
				return app.printer().Println(strconv.FormatInt(count, 10))
			})
		},
	}
}

func newServeCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the page cache over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, s *session) error {
				return serve(ctx, s)
			})
		},
	}
}

type listOptions struct {
	watch bool
	limit int
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.watch, "watch", false, "keep printing the list whenever the cache changes")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "print at most this many pages (0 prints all)")
}

func (o listOptions) apply(results []pages.PageIdentifier) []pages.PageIdentifier {
	if o.limit > 0 && len(results) > o.limit {
		return results[:o.limit]
	}
	return results
}

// list prints one listing, or every snapshot of a watched listing until ctx ends.
func (a *application) list(
	ctx context.Context,
	opts listOptions,
	query func(context.Context) ([]pages.PageIdentifier, error),
	watch func(context.Context) <-chan pages.Snapshot,
) error {
	printer := a.printer()

	if !opts.watch {
		results, err := query(ctx)
		if err != nil {
			return err
		}
		return printer.PrintIdentifiers(opts.apply(results))
	}

	first := true
	for snapshot := range watch(ctx) {
		if snapshot.Err != nil {
			fmt.Fprintf(a.stderr, "refresh failed: %v\n", snapshot.Err)
			continue
		}
		if !first {
			if err := printer.Println(""); err != nil {
				return err
			}
		}
		first = false
		if err := printer.PrintIdentifiers(opts.apply(snapshot.Pages)); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, s *session) error {
	httpServer := &stdhttp.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", s.config.ServerPort),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	grace := s.config.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	s.logger.Info("http server shut down cleanly")
	return nil
}
