// Package ranking turns raw venue candidates and a travel-time matrix into an
// ordered shortlist. It is pure: no I/O, no clocks, no randomness.
package ranking

import (
	"sort"

	"github.com/saxenaaman628/trip-poll/internal/models"
)

const (
	// DefaultK is the shortlist size.
	DefaultK = 3

	// DefaultMaxVariance is the variance, in seconds², at which a candidate's
	// fairness reaches zero: one hour squared.
	DefaultMaxVariance = 3600.0 * 3600.0
)

type Weights struct {
	Fairness float64
	Rating   float64
	Price    float64
}

var DefaultWeights = Weights{Fairness: 0.5, Rating: 0.3, Price: 0.2}

// TravelTime is one matrix cell. Valid is false when the provider produced no
// route for the pair.
type TravelTime struct {
	Seconds float64
	Valid   bool
}

// Matrix is indexed [participant][candidate].
type Matrix [][]TravelTime

type Engine struct {
	K           int
	MaxVariance float64
	Weights     Weights
}

func NewEngine() Engine {
	return Engine{K: DefaultK, MaxVariance: DefaultMaxVariance, Weights: DefaultWeights}
}

type scored struct {
	option models.TripOption
	score  float64
}

// Rank scores every candidate and returns the best K, highest composite score
// first, ties broken by ascending place id. Duplicate place ids keep their
// first occurrence.
func (e Engine) Rank(candidates []models.Candidate, matrix Matrix) []models.TripOption {
	k := e.K
	if k <= 0 {
		k = DefaultK
	}
	maxVariance := e.MaxVariance
	if maxVariance <= 0 {
		maxVariance = DefaultMaxVariance
	}
	w := e.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}

	seen := make(map[string]bool, len(candidates))
	list := make([]scored, 0, len(candidates))
	for idx, c := range candidates {
		if c.PlaceID == "" || seen[c.PlaceID] {
			continue
		}
		seen[c.PlaceID] = true

		fairness := FairnessScore(matrix.column(idx), maxVariance)
		score := w.Fairness*fairness + w.Rating*RatingScore(c.Rating) + w.Price*PriceScore(c.PriceLevel)

		list = append(list, scored{
			score: score,
			option: models.TripOption{
				PlaceID:         c.PlaceID,
				Name:            c.Name,
				Rating:          c.Rating,
				PriceLevel:      c.PriceLevel,
				VibeDescription: c.VibeDescription,
				Coordinate:      c.Coordinate,
				Votes:           0,
				Score:           score,
			},
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].option.PlaceID < list[j].option.PlaceID
	})

	if len(list) > k {
		list = list[:k]
	}
	out := make([]models.TripOption, len(list))
	for i, s := range list {
		out[i] = s.option
	}
	return out
}

// column collects the valid durations for one candidate across participants.
func (m Matrix) column(candidate int) []float64 {
	durations := make([]float64, 0, len(m))
	for _, row := range m {
		if candidate >= len(row) {
			continue
		}
		if cell := row[candidate]; cell.Valid && cell.Seconds >= 0 {
			durations = append(durations, cell.Seconds)
		}
	}
	return durations
}

// FairnessScore is 1 - min(variance/maxVariance, 1) over the population
// variance of durations. Fewer than two durations score 1.
func FairnessScore(durations []float64, maxVariance float64) float64 {
	if len(durations) < 2 {
		return 1.0
	}
	if maxVariance <= 0 {
		maxVariance = DefaultMaxVariance
	}
	v := Variance(durations)
	if v >= maxVariance {
		return 0
	}
	return 1 - v/maxVariance
}

// Variance is the population variance.
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return sq / float64(len(xs))
}

func RatingScore(rating *float64) float64 {
	if rating == nil {
		return 0
	}
	return clamp01(*rating / 5.0)
}

func PriceScore(priceLevel *int) float64 {
	if priceLevel == nil {
		return 0.5
	}
	return clamp01(1 - float64(*priceLevel)/4.0)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
