package models

// MediaRecord is the persisted row for one harvested element (table media).
type MediaRecord struct {
	ID              string   `json:"id" db:"id"`
	LocationID      string   `json:"location_id" db:"location_id"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Timestamp       *string  `json:"timestamp,omitempty" db:"timestamp"`
	Title           *string  `json:"title,omitempty" db:"title"`
	PreviewPath     *string  `json:"preview_path,omitempty" db:"preview_path"`
	MediaPath       *string  `json:"media_path,omitempty" db:"media_path"`
	OverlayPath     *string  `json:"overlay_path,omitempty" db:"overlay_path"`
	OverlayText     *string  `json:"overlay_text,omitempty" db:"overlay_text"`
}
