package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/voyagen/heatvault/internal/models"
)

const englishLocale = "en"

// ErrNoMedia is returned by ParseElement when an element carries neither a
// streaming nor a public media descriptor.
var ErrNoMedia = errors.New("element has no media descriptor")

var errNoID = &parseError{msg: "element has no id"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// LocaleString is one localized variant of a text.
type LocaleString struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

type localizedText struct {
	Strings  []LocaleString `json:"strings"`
	Fallback *string        `json:"fallback"`
}

type streamingMediaInfo struct {
	PrefixURL  string `json:"prefixUrl"`
	PreviewURL string `json:"previewUrl"`
	MediaURL   string `json:"mediaUrl"`
	OverlayURL string `json:"overlayUrl"`
}

type publicMediaInfo struct {
	PublicImageMediaInfo *struct {
		MediaURL string `json:"mediaUrl"`
	} `json:"publicImageMediaInfo"`
}

type snapInfo struct {
	Title              *localizedText      `json:"title"`
	OverlayText        *string             `json:"overlayText"`
	StreamingMediaInfo *streamingMediaInfo `json:"streamingMediaInfo"`
	PublicMediaInfo    *publicMediaInfo    `json:"publicMediaInfo"`
}

type rawElement struct {
	ID        string      `json:"id"`
	Duration  *flexString `json:"duration"`
	Timestamp *flexString `json:"timestamp"`
	SnapInfo  *snapInfo   `json:"snapInfo"`
}

// flexString accepts a JSON string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// ParseElement decodes one manifest element. When the element has no media
// descriptor the returned element is still populated and the error is ErrNoMedia.
func ParseElement(raw json.RawMessage) (models.ManifestElement, error) {
	var r rawElement
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.ManifestElement{Raw: raw}, fmt.Errorf("decode element: %w", err)
	}
	el := models.ManifestElement{
		ID:        strings.TrimSpace(r.ID),
		Duration:  parseDuration(r.Duration),
		Timestamp: (*string)(r.Timestamp),
		Raw:       raw,
	}
	if el.ID == "" {
		return el, errNoID
	}
	if r.SnapInfo == nil {
		return el, ErrNoMedia
	}

	if t := r.SnapInfo.Title; t != nil {
		el.Title = ResolveTitle(t.Strings, t.Fallback)
	}
	el.OverlayText = r.SnapInfo.OverlayText
	el.Kind, el.Assets = mediaAssets(r.SnapInfo)
	if el.Kind == models.MediaNone {
		return el, ErrNoMedia
	}
	return el, nil
}

// ResolveTitle returns the first English text, else fallback (which may be nil).
func ResolveTitle(strs []LocaleString, fallback *string) *string {
	for _, s := range strs {
		if s.Locale == englishLocale {
			text := s.Text
			return &text
		}
	}
	return fallback
}

// mediaAssets picks the descriptor: streaming wins over public.
func mediaAssets(info *snapInfo) (models.MediaKind, models.Assets) {
	switch {
	case info.StreamingMediaInfo != nil:
		m := info.StreamingMediaInfo
		var a models.Assets
		if m.PreviewURL != "" {
			a.PreviewURL = m.PrefixURL + m.PreviewURL
		}
		if m.MediaURL != "" {
			a.MediaURL = m.PrefixURL + m.MediaURL
		}
		if m.OverlayURL != "" {
			a.OverlayURL = m.PrefixURL + m.OverlayURL
		}
		return models.MediaStreaming, a
	case info.PublicMediaInfo != nil:
		var a models.Assets
		if img := info.PublicMediaInfo.PublicImageMediaInfo; img != nil {
			a.PreviewURL = img.MediaURL
		}
		return models.MediaPublic, a
	default:
		return models.MediaNone, models.Assets{}
	}
}

// OverlayIsPNG reports whether the overlay URL's path ends in "png".
func OverlayIsPNG(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return strings.HasSuffix(path, "png")
}

func parseDuration(v *flexString) *float64 {
	if v == nil {
		return nil
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(*v)), 64)
	if err != nil {
		return nil
	}
	return &d
}
