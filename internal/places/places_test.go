package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

const (
	nearbyPath = "/maps/api/place/nearbysearch/json"
	matrixPath = "/maps/api/distancematrix/json"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNearby(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, nearbyPath, r.URL.Path)
		gotQuery.Store(r.URL.Query())
		writeJSON(w, map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"place_id":    "a",
					"name":        "Cafe A",
					"rating":      4.5,
					"price_level": 2,
					"vicinity":    "12 Main St",
					"geometry":    map[string]any{"location": map[string]any{"lat": 1.5, "lng": 2.5}},
				},
				{
					"place_id": "b",
					"name":     "Cafe B",
					"geometry": map[string]any{"location": map[string]any{"lat": 3, "lng": 4}},
				},
			},
		})
	}))

	got, err := c.Nearby(context.Background(), models.LatLng{Lat: 10, Lng: 20}, "cafe", 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].PlaceID)
	assert.Equal(t, "Cafe A", got[0].Name)
	assert.Equal(t, "12 Main St", got[0].VibeDescription)
	require.NotNil(t, got[0].Rating)
	assert.InDelta(t, 4.5, *got[0].Rating, 1e-6)
	require.NotNil(t, got[0].PriceLevel)
	assert.Equal(t, 2, *got[0].PriceLevel)
	assert.Equal(t, models.LatLng{Lat: 1.5, Lng: 2.5}, got[0].Coordinate)

	assert.Nil(t, got[1].Rating)
	assert.Nil(t, got[1].PriceLevel)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "cafe", q.Get("type"))
	assert.Equal(t, "5000", q.Get("radius"))
	assert.Equal(t, "test-key", q.Get("key"))
}

func TestNearby_ErrorStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "REQUEST_DENIED", "error_message": "bad key"})
	}))

	_, err := c.Nearby(context.Background(), models.LatLng{}, "bar", 1000)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
}

func TestNearby_Timeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, map[string]any{"status": "OK"})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Nearby(ctx, models.LatLng{}, "bar", 1000)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
}

// matrixHandler answers with duration = origin latitude * 100 + destination
// index, and no route for destinations whose index is a multiple of 7.
func matrixHandler(calls *atomic.Int32, modes *atomic.Value) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != matrixPath {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		modes.Store(r.URL.Query().Get("mode"))
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		dests := strings.Split(r.URL.Query().Get("destinations"), "|")

		rows := make([]map[string]any, 0, len(origins))
		for _, o := range origins {
			lat, _ := strconv.ParseFloat(strings.Split(o, ",")[0], 64)
			elems := make([]map[string]any, 0, len(dests))
			for _, d := range dests {
				idx, _ := strconv.Atoi(strings.TrimPrefix(d, "place_id:p"))
				if idx%7 == 0 {
					elems = append(elems, map[string]any{"status": "ZERO_RESULTS"})
					continue
				}
				secs := int(lat)*100 + idx
				elems = append(elems, map[string]any{
					"status":   "OK",
					"duration": map[string]any{"value": secs, "text": fmt.Sprintf("%d s", secs)},
					"distance": map[string]any{"value": 1000, "text": "1 km"},
				})
			}
			rows = append(rows, map[string]any{"elements": elems})
		}
		writeJSON(w, map[string]any{"status": "OK", "rows": rows})
	}
}

func TestTravelTimes_ChunksLargeGrids(t *testing.T) {
	var calls atomic.Int32
	var mode atomic.Value
	c := newTestClient(t, matrixHandler(&calls, &mode))

	origins := make([]models.LatLng, 30)
	for i := range origins {
		origins[i] = models.LatLng{Lat: float64(i), Lng: 0}
	}
	dests := make([]models.Candidate, 10)
	for j := range dests {
		dests[j] = models.Candidate{PlaceID: fmt.Sprintf("p%d", j)}
	}

	m, err := c.TravelTimes(context.Background(), origins, dests, models.TravelModeWalk)
	require.NoError(t, err)
	assert.EqualValues(t, len(blocks(30, 10)), calls.Load())
	assert.Equal(t, "walking", mode.Load())

	require.Len(t, m, 30)
	for i := range origins {
		require.Len(t, m[i], 10)
		for j := range dests {
			if j%7 == 0 {
				assert.False(t, m[i][j].Valid, "origin %d dest %d", i, j)
				continue
			}
			assert.True(t, m[i][j].Valid)
			assert.Equal(t, float64(i*100+j), m[i][j].Seconds)
		}
	}
}

func TestTravelTimes_Empty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}))
	m, err := c.TravelTimes(context.Background(), []models.LatLng{{}}, nil, models.TravelModeDrive)
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.Empty(t, m[0])
}

func TestTravelTimes_Failure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "OVER_QUERY_LIMIT"})
	}))
	_, err := c.TravelTimes(context.Background(), []models.LatLng{{Lat: 1}}, []models.Candidate{{PlaceID: "p1"}}, models.TravelModeDrive)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
}

func TestBlocks_RespectLimits(t *testing.T) {
	for _, tc := range []struct{ o, d int }{{1, 1}, {3, 40}, {25, 25}, {30, 10}, {60, 200}} {
		covered := 0
		for _, b := range blocks(tc.o, tc.d) {
			n, m := b.o1-b.o0, b.d1-b.d0
			assert.LessOrEqual(t, n, maxOrigins)
			assert.LessOrEqual(t, m, maxDestinations)
			assert.LessOrEqual(t, n*m, maxElements)
			covered += n * m
		}
		assert.Equal(t, tc.o*tc.d, covered, "%dx%d", tc.o, tc.d)
	}
}

func TestTravelModeMapping(t *testing.T) {
	assert.EqualValues(t, "walking", travelMode(models.TravelModeWalk))
	assert.EqualValues(t, "driving", travelMode(models.TravelModeDrive))
	assert.EqualValues(t, "driving", travelMode(models.TravelModeUber))
	assert.EqualValues(t, "driving", travelMode(""))
}
