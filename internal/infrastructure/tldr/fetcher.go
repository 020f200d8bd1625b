// Package tldr downloads and unpacks the tldr page archive.
package tldr

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpproxy"

	domainpages "lethe/app/internal/domain/pages"
)

const (
	// DefaultArchiveURL is the published bundle of every tldr page.
	DefaultArchiveURL = "https://tldr.sh/assets/tldr.zip"
	archiveFileName   = "tldr.zip"
)

// DefaultArchivePath is the staging location the archive is written to.
func DefaultArchivePath() string {
	return filepath.Join(os.TempDir(), archiveFileName)
}

// FetcherOptions configures the archive download.
type FetcherOptions struct {
	URL        string
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Proxy overrides the proxy settings read from HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
	Proxy  *httpproxy.Config
	Logger *logrus.Logger
}

type fetcher struct {
	client *http.Client
	url    string
	path   string
	logger *logrus.Logger
}

// NewFetcher constructs a Fetcher that streams the archive to a local file.
func NewFetcher(opts FetcherOptions) (domainpages.Fetcher, error) {
	archiveURL := strings.TrimSpace(opts.URL)
	if archiveURL == "" {
		archiveURL = DefaultArchiveURL
	}
	if _, err := url.ParseRequestURI(archiveURL); err != nil {
		return nil, eris.Wrapf(err, "invalid archive url: %s", archiveURL)
	}

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = DefaultArchivePath()
	}

	client := opts.HTTPClient
	if client == nil {
		proxy := opts.Proxy
		if proxy == nil {
			proxy = httpproxy.FromEnvironment()
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = proxyFunc(proxy)
		client = &http.Client{Transport: transport, Timeout: opts.Timeout}
	}

	return &fetcher{client: client, url: archiveURL, path: path, logger: opts.Logger}, nil
}

func proxyFunc(cfg *httpproxy.Config) func(*http.Request) (*url.URL, error) {
	resolve := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}

// Fetch downloads the archive, overwriting whatever the staging path held before. A failed
// download may leave a partial file behind.
func (f *fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", eris.Wrap(err, "building archive request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logError(err, "archive request failed")
		return "", eris.Wrapf(err, "requesting archive: %s", f.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := eris.Errorf("unexpected archive response status: %s", resp.Status)
		f.logError(err, "archive request rejected")
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return "", eris.Wrapf(err, "creating archive directory for %s", f.path)
	}

	file, err := os.Create(f.path)
	if err != nil {
		return "", eris.Wrapf(err, "creating archive file: %s", f.path)
	}

	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		f.logError(copyErr, "archive download interrupted")
		return "", eris.Wrapf(copyErr, "writing archive: %s", f.path)
	}
	if closeErr != nil {
		return "", eris.Wrapf(closeErr, "closing archive: %s", f.path)
	}

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"component": "tldr.fetch",
			"url":       f.url,
			"path":      f.path,
			"bytes":     written,
		}).Info("archive downloaded")
	}

	return f.path, nil
}

func (f *fetcher) logError(err error, message string) {
	if f.logger == nil || err == nil {
		return
	}

	f.logger.WithFields(logrus.Fields{
		"component": "tldr.fetch",
		"url":       f.url,
	}).WithField("error", err.Error()).Error(message)
}
