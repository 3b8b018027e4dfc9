// Package crimefeed adapts the upstream paginated crime feed to the
// Event Store's ingestion path: a pull-only, monthly-batch point-event
// source with capped exponential backoff on transient failures.
package crimefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paulmach/orb"

	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/retry"
	"saferoute/internal/services/events/domain"
)

// Client fetches monthly crime-event batches for a set of bounding-box
// tiles from the upstream feed.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New constructs a feed client against baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Tile is one bounding-box tile the feed is paginated by.
type Tile struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// wireEvent is the feed's JSON shape for one point event.
type wireEvent struct {
	ExternalID  string  `json:"id"`
	Category    string  `json:"category"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	ForceID     string  `json:"force_id"`
	OutputArea  string  `json:"output_area"`
	LocationTxt string  `json:"location"`
}

// Fetch pulls every event for (year, month) across bboxTiles, retrying
// transient HTTP errors with capped exponential backoff. A
// non-transient or exhausted-retry failure surfaces as UpstreamUnavailable.
func (c *Client) Fetch(ctx context.Context, year int, month time.Month, bboxTiles []Tile) ([]domain.CrimeEvent, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var out []domain.CrimeEvent

	for _, tile := range bboxTiles {
		events, err := c.fetchTile(ctx, monthStart, tile)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}
	return out, nil
}

func (c *Client) fetchTile(ctx context.Context, month time.Time, tile Tile) ([]domain.CrimeEvent, error) {
	var events []domain.CrimeEvent

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(month, tile), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // network errors are transient, keep retrying
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("crimefeed: upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("crimefeed: upstream status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		var wire []wireEvent
		if err := json.Unmarshal(body, &wire); err != nil {
			return backoff.Permanent(err)
		}
		events = toEvents(wire, month)
		return nil
	}

	if err := backoff.Retry(op, retry.Policy()); err != nil {
		return nil, perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "crimefeed: fetch tile after retries")
	}
	return events, nil
}

func (c *Client) url(month time.Time, tile Tile) string {
	return fmt.Sprintf("%s/crimes?month=%s&bbox=%f,%f,%f,%f",
		c.baseURL, month.Format("2006-01"), tile.MinLon, tile.MinLat, tile.MaxLon, tile.MaxLat)
}

func toEvents(wire []wireEvent, month time.Time) []domain.CrimeEvent {
	out := make([]domain.CrimeEvent, len(wire))
	for i, w := range wire {
		out[i] = domain.CrimeEvent{
			ExternalID:  w.ExternalID,
			Month:       month,
			Category:    w.Category,
			Location:    orb.Point{w.Lon, w.Lat},
			ForceID:     w.ForceID,
			OutputArea:  w.OutputArea,
			LocationTxt: w.LocationTxt,
		}
	}
	return out
}
