package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/heatvault/internal/retry"
)

// DefaultBaseURL is the public map API host.
const DefaultBaseURL = "https://ms.sc-jpl.com"

const (
	tileSetPath  = "/web/getLatestTileSet"
	playlistPath = "/web/getPlaylist"

	heatTileSet = "HEAT"
)

// Client talks to the tileset and playlist endpoints.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates an API client. baseURL defaults to DefaultBaseURL;
// userAgent is optional. policy governs the playlist fetch.
func NewClient(baseURL, userAgent string, timeout time.Duration, policy retry.Policy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

// LatestEpoch returns the epoch of the first HEAT tileset, or 0 if the
// response lists none. It is tried once; errors go back to the caller.
func (c *Client) LatestEpoch(ctx context.Context) (int64, error) {
	var resp tileSetResponse
	if err := c.postJSON(ctx, tileSetPath, struct{}{}, &resp); err != nil {
		return 0, fmt.Errorf("getLatestTileSet: %w", err)
	}
	for _, info := range resp.TileSetInfos {
		if info.ID.Type != heatTileSet {
			continue
		}
		epoch, err := strconv.ParseInt(strings.TrimSpace(string(info.ID.Epoch)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse epoch %q: %w", string(info.ID.Epoch), err)
		}
		return epoch, nil
	}
	return 0, nil
}

// FetchPlaylist queries the manifest around q. Transport errors and non-2xx
// answers are retried under the client's policy.
func (c *Client) FetchPlaylist(ctx context.Context, q PlaylistQuery) (*Playlist, error) {
	body := playlistRequest{
		RequestGeoPoint: geoPoint{Lat: q.Latitude, Lon: q.Longitude},
		ZoomLevel:       q.ZoomLevel,
		TileSetID: tileSetRef{
			Flavor: defaultFlavor,
			Epoch:  q.Epoch,
			Type:   heatTileSetType,
		},
		RadiusMeters:      q.RadiusMeters,
		MaximumFuzzRadius: 0,
	}

	var playlist Playlist
	err := retry.Do(ctx, c.policy, func() error {
		playlist = Playlist{}
		return c.postJSON(ctx, playlistPath, body, &playlist)
	})
	if err != nil {
		return nil, fmt.Errorf("getPlaylist: %w", err)
	}
	return &playlist, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if err := retry.CheckStatus(resp.StatusCode, url); err != nil {
		return err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ReadAll: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
