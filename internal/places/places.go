// Package places adapts the Google Places and Distance Matrix APIs to the
// candidate-source and travel-time contracts the orchestrator consumes.
package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

const (
	sourceNearby = "places_nearby"
	sourceMatrix = "distance_matrix"
)

type Client struct {
	maps    *maps.Client
	metrics metrics.Recorder
	logger  *slog.Logger

	// fanout bounds concurrent Distance Matrix requests per call.
	fanout int
}

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.Recorder
	logger     *slog.Logger
	fanout     int
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithFanout(n int) Option {
	return func(o *options) { o.fanout = n }
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("places: API key is not configured")
	}

	o := options{fanout: 4}
	for _, opt := range opts {
		opt(&o)
	}

	mapsOpts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if o.baseURL != "" {
		mapsOpts = append(mapsOpts, maps.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		mapsOpts = append(mapsOpts, maps.WithHTTPClient(o.httpClient))
	}
	mc, err := maps.NewClient(mapsOpts...)
	if err != nil {
		return nil, fmt.Errorf("places: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	if o.fanout < 1 {
		o.fanout = 1
	}
	return &Client{maps: mc, metrics: metrics.OrNop(o.metrics), logger: logger, fanout: o.fanout}, nil
}

// Nearby returns venues of venueType within radiusM metres of center.
func (c *Client) Nearby(ctx context.Context, center models.LatLng, venueType string, radiusM uint) ([]models.Candidate, error) {
	start := time.Now()
	resp, err := c.maps.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lng},
		Radius:   radiusM,
		Type:     maps.PlaceType(venueType),
	})
	if err != nil {
		c.metrics.ExternalCall(sourceNearby, metrics.OutcomeFailed, time.Since(start))
		c.logger.Error("nearby search failed", "type", venueType, "error", err)
		return nil, externalError("candidate search failed", err)
	}
	c.metrics.ExternalCall(sourceNearby, metrics.OutcomeSuccess, time.Since(start))

	out := make([]models.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, toCandidate(r))
	}
	c.logger.Debug("nearby search", "type", venueType, "radius", radiusM, "results", len(out))
	return out, nil
}

// toCandidate maps a search result. Google reports an unknown rating or
// price level as zero, which is treated as absent.
func toCandidate(r maps.PlacesSearchResult) models.Candidate {
	cand := models.Candidate{
		PlaceID:         r.PlaceID,
		Name:            r.Name,
		VibeDescription: r.Vicinity,
		Coordinate:      models.LatLng{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
	}
	if r.Rating > 0 {
		rating := float64(r.Rating)
		cand.Rating = &rating
	}
	if r.PriceLevel > 0 {
		price := r.PriceLevel
		cand.PriceLevel = &price
	}
	return cand
}

func externalError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.External(msg+": timed out", err)
	}
	return apperr.External(msg, err)
}
