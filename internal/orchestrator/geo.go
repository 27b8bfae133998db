package orchestrator

import "github.com/saxenaaman628/trip-poll/internal/models"

// Origins returns the locations of participants who shared one, in
// participant order. Its rows line up with the travel-time matrix.
func Origins(participants []models.Participant) []models.LatLng {
	out := make([]models.LatLng, 0, len(participants))
	for _, p := range participants {
		if p.Location != nil {
			out = append(out, *p.Location)
		}
	}
	return out
}

// Centroid is the arithmetic mean of points. ok is false for no points.
func Centroid(points []models.LatLng) (c models.LatLng, ok bool) {
	if len(points) == 0 {
		return models.LatLng{}, false
	}
	for _, p := range points {
		c.Lat += p.Lat
		c.Lng += p.Lng
	}
	n := float64(len(points))
	return models.LatLng{Lat: c.Lat / n, Lng: c.Lng / n}, true
}

// TravelModeOf picks the most requested travel mode among located
// participants. Ties and the absence of any preference resolve to Drive.
func TravelModeOf(participants []models.Participant) models.TravelMode {
	counts := make(map[models.TravelMode]int)
	for _, p := range participants {
		if p.Location == nil || p.Preferences == nil || p.Preferences.TravelMode == "" {
			continue
		}
		counts[p.Preferences.TravelMode]++
	}

	best, bestN := models.TravelModeDrive, counts[models.TravelModeDrive]
	for _, m := range []models.TravelMode{models.TravelModeWalk, models.TravelModeUber} {
		if counts[m] > bestN {
			best, bestN = m, counts[m]
		}
	}
	return best
}
