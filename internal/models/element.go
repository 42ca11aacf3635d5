package models

import "encoding/json"

// Assets holds the absolute asset URLs of one element. Empty means absent.
type Assets struct {
	PreviewURL string `json:"preview_url,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	OverlayURL string `json:"overlay_url,omitempty"`
}

// Empty reports whether no asset URL is set.
func (a Assets) Empty() bool {
	return a.PreviewURL == "" && a.MediaURL == "" && a.OverlayURL == ""
}

// ManifestElement is one playlist entry after parsing. It only lives for the
// duration of a run.
type ManifestElement struct {
	ID          string
	Duration    *float64
	Timestamp   *string
	Title       *string
	OverlayText *string
	Kind        MediaKind
	Assets      Assets
	Raw         json.RawMessage
}
