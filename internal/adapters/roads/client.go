// Package roads is a client for the Google Maps Roads snap-to-roads API.
package roads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrNoSnappedPoints is returned when the API answers without any points.
var ErrNoSnappedPoints = errors.New("no snapped points in response")

// Client snaps GPS traces to the road network.
type Client struct {
	apiKey  string
	baseURL string
	http    HTTPDoer
}

// NewClient creates a Client with its own timeout-bound http.Client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPDoer(apiKey, baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPDoer creates a Client over a custom transport.
func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

type snapResponse struct {
	SnappedPoints []struct {
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		OriginalIndex *int   `json:"originalIndex"`
		PlaceID       string `json:"placeId"`
	} `json:"snappedPoints"`
}

// SnapToRoads sends points as one interpolated path. Points added by
// interpolation carry OriginalIndex -1.
func (c *Client) SnapToRoads(ctx context.Context, points []domain.GeoPoint) ([]domain.SnappedPoint, error) {
	if len(points) == 0 {
		return nil, errors.New("no points to snap")
	}

	path := make([]string, len(points))
	for i, p := range points {
		path[i] = strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("path", strings.Join(path, "|"))
	q.Set("interpolate", "true")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/snapToRoads?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.New("roads api rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("roads api error %d: %s", resp.StatusCode, string(body))
	}

	var sr snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(sr.SnappedPoints) == 0 {
		return nil, ErrNoSnappedPoints
	}

	out := make([]domain.SnappedPoint, len(sr.SnappedPoints))
	for i, sp := range sr.SnappedPoints {
		idx := -1
		if sp.OriginalIndex != nil {
			idx = *sp.OriginalIndex
		}
		out[i] = domain.SnappedPoint{
			Location:      domain.GeoPoint{Lat: sp.Location.Latitude, Lon: sp.Location.Longitude},
			OriginalIndex: idx,
		}
	}
	return out, nil
}
