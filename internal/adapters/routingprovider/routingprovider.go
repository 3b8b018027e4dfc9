// Package routingprovider adapts the third-party geocoded-routing provider
// to the Route Scorer's candidate input: a black box that turns an
// origin/destination/mode into 1..N polylines, treated as opaque except
// for retrying transient failures.
package routingprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/retry"
)

// Mode is a travel mode the provider accepts.
type Mode string

// Recognized modes.
const (
	ModeFootWalking    Mode = "foot-walking"
	ModeCyclingRegular Mode = "cycling-regular"
)

// Request is one routing request forwarded to the provider.
type Request struct {
	Origin      orb.Point
	Destination orb.Point
	Mode        Mode
}

// Instruction is one turn-by-turn step, carried through opaque to scoring.
type Instruction struct {
	Text     string
	Distance float64
}

// Candidate is one provider-returned route.
type Candidate struct {
	ID           string
	Polyline     orb.LineString
	Distance     float64
	Duration     time.Duration
	Instructions []Instruction
}

// Client calls the routing provider over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New constructs a routing provider client against baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

type wireResponse struct {
	Routes []struct {
		ID           string       `json:"id"`
		Polyline     [][2]float64 `json:"polyline"`
		DistanceM    float64      `json:"distance_m"`
		DurationSec  float64      `json:"duration_s"`
		Instructions []struct {
			Text     string  `json:"text"`
			Distance float64 `json:"distance"`
		} `json:"instructions"`
	} `json:"routes"`
}

// Route requests candidate polylines for one origin/destination/mode,
// retrying transient upstream errors with capped exponential backoff.
// Exhausted retries surface as UpstreamUnavailable.
func (c *Client) Route(ctx context.Context, req Request) ([]Candidate, error) {
	var candidates []Candidate

	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(req), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("routingprovider: upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("routingprovider: upstream status %d", resp.StatusCode))
		}

		var wire wireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return backoff.Permanent(err)
		}
		candidates = toCandidates(wire)
		return nil
	}

	if err := backoff.Retry(op, retry.Policy()); err != nil {
		return nil, perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "routingprovider: route after retries")
	}
	return candidates, nil
}

func (c *Client) url(req Request) string {
	return fmt.Sprintf("%s/route?origin=%f,%f&destination=%f,%f&mode=%s",
		c.baseURL, req.Origin.Lon(), req.Origin.Lat(), req.Destination.Lon(), req.Destination.Lat(), req.Mode)
}

func toCandidates(wire wireResponse) []Candidate {
	out := make([]Candidate, len(wire.Routes))
	for i, r := range wire.Routes {
		line := make(orb.LineString, len(r.Polyline))
		for j, p := range r.Polyline {
			line[j] = orb.Point{p[0], p[1]}
		}
		instr := make([]Instruction, len(r.Instructions))
		for j, s := range r.Instructions {
			instr[j] = Instruction{Text: s.Text, Distance: s.Distance}
		}
		id := r.ID
		if id == "" {
			id = uuid.NewString() // some providers omit ids; scoring needs one per candidate
		}
		out[i] = Candidate{
			ID:           id,
			Polyline:     line,
			Distance:     r.DistanceM,
			Duration:     time.Duration(r.DurationSec * float64(time.Second)),
			Instructions: instr,
		}
	}
	return out
}
