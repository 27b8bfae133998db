package places

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"googlemaps.github.io/maps"

	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/ranking"
)

// Distance Matrix request limits.
const (
	maxOrigins      = 25
	maxDestinations = 25
	maxElements     = 100
)

type block struct {
	o0, o1 int
	d0, d1 int
}

// TravelTimes returns the duration from every origin to every destination
// place, indexed [origin][destination]. Pairs without a route are left
// invalid rather than failing the call.
func (c *Client) TravelTimes(ctx context.Context, origins []models.LatLng, destinations []models.Candidate, mode models.TravelMode) (ranking.Matrix, error) {
	matrix := make(ranking.Matrix, len(origins))
	for i := range matrix {
		matrix[i] = make([]ranking.TravelTime, len(destinations))
	}
	if len(origins) == 0 || len(destinations) == 0 {
		return matrix, nil
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	for _, b := range blocks(len(origins), len(destinations)) {
		g.Go(func() error {
			return c.fetchBlock(gctx, b, origins, destinations, mode, matrix)
		})
	}
	if err := g.Wait(); err != nil {
		c.metrics.ExternalCall(sourceMatrix, metrics.OutcomeFailed, time.Since(start))
		c.logger.Error("distance matrix failed", "origins", len(origins), "destinations", len(destinations), "error", err)
		return nil, externalError("travel time lookup failed", err)
	}
	c.metrics.ExternalCall(sourceMatrix, metrics.OutcomeSuccess, time.Since(start))
	return matrix, nil
}

// fetchBlock writes a disjoint sub-rectangle of matrix, so blocks can fill it
// concurrently.
func (c *Client) fetchBlock(ctx context.Context, b block, origins []models.LatLng, destinations []models.Candidate, mode models.TravelMode, matrix ranking.Matrix) error {
	req := &maps.DistanceMatrixRequest{Mode: travelMode(mode)}
	for _, o := range origins[b.o0:b.o1] {
		req.Origins = append(req.Origins, fmt.Sprintf("%f,%f", o.Lat, o.Lng))
	}
	for _, d := range destinations[b.d0:b.d1] {
		req.Destinations = append(req.Destinations, "place_id:"+d.PlaceID)
	}

	resp, err := c.maps.DistanceMatrix(ctx, req)
	if err != nil {
		return err
	}
	for i, row := range resp.Rows {
		if b.o0+i >= b.o1 {
			break
		}
		for j, el := range row.Elements {
			if b.d0+j >= b.d1 || el == nil || el.Status != "OK" {
				continue
			}
			matrix[b.o0+i][b.d0+j] = ranking.TravelTime{Seconds: el.Duration.Seconds(), Valid: true}
		}
	}
	return nil
}

// blocks tiles an origins x destinations grid into requests that respect the
// per-request limits.
func blocks(origins, destinations int) []block {
	oStep := min(origins, maxOrigins)
	dStep := min(maxDestinations, maxElements/oStep)

	var out []block
	for o := 0; o < origins; o += oStep {
		for d := 0; d < destinations; d += dStep {
			out = append(out, block{o0: o, o1: min(o+oStep, origins), d0: d, d1: min(d+dStep, destinations)})
		}
	}
	return out
}

func travelMode(m models.TravelMode) maps.Mode {
	if m == models.TravelModeWalk {
		return maps.TravelModeWalking
	}
	return maps.TravelModeDriving
}
