package pages

import "time"

// PageRecord is a cached cheat-sheet page persisted in the database.
type PageRecord struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null;uniqueIndex:idx_pages_name_platform,priority:1"`
	Platform  string `gorm:"size:64;not null;uniqueIndex:idx_pages_name_platform,priority:2"`
	Markdown  string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// HistoryRecord stores one view of a page. Rows go away with their page.
type HistoryRecord struct {
	ID       int64      `gorm:"primaryKey"`
	PageID   int64      `gorm:"not null;index:idx_history_page_id"`
	Page     PageRecord `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
	ViewedAt time.Time  `gorm:"not null"`
}

// TableName defines the table name for the HistoryRecord model.
func (HistoryRecord) TableName() string {
	return "history"
}

type identifierRow struct {
	ID       int64
	Name     string
	Platform string
}
