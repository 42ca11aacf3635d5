package models

// MediaKind tells which media descriptor a manifest element carried.
type MediaKind int16

// Media descriptor kinds (aligned with the snapInfo shapes).
const (
	MediaNone      MediaKind = 0
	MediaStreaming MediaKind = 1
	MediaPublic    MediaKind = 2
)

func (k MediaKind) String() string {
	switch k {
	case MediaStreaming:
		return "streaming"
	case MediaPublic:
		return "public"
	default:
		return "none"
	}
}

// Local asset naming.
const (
	MediaExt      = ".mp4"
	PreviewExt    = ".jpg"
	OverlaySuffix = "_overlay.png"
)
