package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	pagesdata "lethe/app/internal/data/pages"
)

// MigratePages applies the page cache schema using Gorm's AutoMigrate and logs progress.
func MigratePages(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "pages.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying page cache schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&pagesdata.PageRecord{}, &pagesdata.HistoryRecord{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("page cache schema migration failed")
		}
		return eris.Wrap(err, "auto migrating page cache schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("page cache schema migration complete")
	}

	return nil
}
