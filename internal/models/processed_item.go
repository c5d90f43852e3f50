package models

import "time"

// Summary modes recorded in the processing history.
const (
	ModeLLM    = "llm"
	ModeSimple = "simple"
)

// ProcessedItem represents a row in the processed_items table
type ProcessedItem struct {
	ID          int64     `db:"id"`
	ItemID      string    `db:"item_id"`
	URL         string    `db:"url"`
	Source      string    `db:"source"`
	Title       string    `db:"title"`
	Mode        string    `db:"mode"`
	ProcessedAt time.Time `db:"processed_at"`
}

// NewProcessedItem builds a history row for a summarized item.
func NewProcessedItem(item NewsItem, mode string) ProcessedItem {
	return ProcessedItem{
		ItemID:      item.ID,
		URL:         item.URL,
		Source:      string(item.Source),
		Title:       item.Title,
		Mode:        mode,
		ProcessedAt: time.Now().UTC(),
	}
}
