package tldr

import (
	"archive/zip"
	"context"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "lethe/app/internal/domain/pages"
)

const (
	pagesRoot     = "pages"
	pageExtension = ".md"
)

// ExtractorOptions configures archive extraction.
type ExtractorOptions struct {
	Logger *logrus.Logger
}

type extractor struct {
	logger *logrus.Logger
}

// NewExtractor constructs an Extractor for tldr zip archives.
func NewExtractor(opts ExtractorOptions) domainpages.Extractor {
	return &extractor{logger: opts.Logger}
}

// Extract reads every pages/<platform>/<name>.md entry of the archive. Translated trees and
// other files are skipped. An archive without English pages yields ErrNoPages.
func (e *extractor) Extract(ctx context.Context, archivePath string) ([]domainpages.Page, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, eris.Wrapf(err, "opening archive: %s", archivePath)
	}
	defer reader.Close()

	var (
		pages   []domainpages.Page
		skipped int
	)
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "extracting archive")
		}

		platform, name, ok := pageLocation(file.Name)
		if !ok || file.FileInfo().IsDir() {
			skipped++
			continue
		}

		markdown, err := readEntry(file)
		if err != nil {
			return nil, eris.Wrapf(err, "reading archive entry: %s", file.Name)
		}

		pages = append(pages, domainpages.Page{Name: name, Platform: platform, Markdown: markdown})
	}

	if len(pages) == 0 {
		return nil, eris.Wrapf(domainpages.ErrNoPages, "archive %s has no pages", archivePath)
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"component": "tldr.extract",
			"path":      archivePath,
			"pages":     len(pages),
			"skipped":   skipped,
		}).Debug("archive extracted")
	}

	return pages, nil
}

// pageLocation splits an entry name of the form pages/<platform>/<name>.md.
func pageLocation(entry string) (platform, name string, ok bool) {
	parts := strings.Split(path.Clean(entry), "/")
	if len(parts) != 3 || parts[0] != pagesRoot {
		return "", "", false
	}
	if path.Ext(parts[2]) != pageExtension {
		return "", "", false
	}

	name = strings.TrimSuffix(parts[2], pageExtension)
	if parts[1] == "" || name == "" {
		return "", "", false
	}
	return parts[1], name, true
}

func readEntry(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
