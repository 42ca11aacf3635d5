package fetcher

import "encoding/json"

const (
	defaultFlavor   = "default"
	heatTileSetType = 1
)

// PlaylistQuery is the geo query sent to getPlaylist.
type PlaylistQuery struct {
	Latitude     float64
	Longitude    float64
	ZoomLevel    int
	RadiusMeters float64
	Epoch        int64
}

// Playlist is the getPlaylist response. Elements stay raw so one malformed
// entry can be logged and skipped without failing the rest.
type Playlist struct {
	Manifest struct {
		Elements []json.RawMessage `json:"elements"`
	} `json:"manifest"`
}

type tileSetResponse struct {
	TileSetInfos []struct {
		ID struct {
			Type   string     `json:"type"`
			Flavor string     `json:"flavor"`
			Epoch  flexString `json:"epoch"`
		} `json:"id"`
	} `json:"tileSetInfos"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type tileSetRef struct {
	Flavor string `json:"flavor"`
	Epoch  int64  `json:"epoch"`
	Type   int    `json:"type"`
}

type playlistRequest struct {
	RequestGeoPoint   geoPoint   `json:"requestGeoPoint"`
	ZoomLevel         int        `json:"zoomLevel"`
	TileSetID         tileSetRef `json:"tileSetId"`
	RadiusMeters      float64    `json:"radiusMeters"`
	MaximumFuzzRadius float64    `json:"maximumFuzzRadius"`
}
