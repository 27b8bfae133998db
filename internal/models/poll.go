package models

import "time"

type LatLng struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

// Candidate is a raw venue from the candidate source, before ranking.
type Candidate struct {
	PlaceID         string
	Name            string
	Rating          *float64
	PriceLevel      *int
	VibeDescription string
	Coordinate      LatLng
}

type TripOption struct {
	PlaceID         string   `json:"placeId"`
	Name            string   `json:"name"`
	Rating          *float64 `json:"rating,omitempty"`
	PriceLevel      *int     `json:"priceLevel,omitempty"`
	VibeDescription string   `json:"vibeDescription,omitempty"`
	Votes           int      `json:"votes"`
	Coordinate      LatLng   `json:"coordinate"`
	Score           float64  `json:"score"`
}

// Poll keeps options in ranking order; only Votes and Voters change after
// creation.
type Poll struct {
	ID        string       `json:"id"`
	Options   []TripOption `json:"options"`
	Voters    []string     `json:"voters"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (p *Poll) HasVoted(voterID string) bool {
	for _, v := range p.Voters {
		if v == voterID {
			return true
		}
	}
	return false
}

// OptionIndex returns the position of placeID, or -1.
func (p *Poll) OptionIndex(placeID string) int {
	for i, o := range p.Options {
		if o.PlaceID == placeID {
			return i
		}
	}
	return -1
}

// Winner is the option with the most votes; ties go to the earliest ranked
// option. ok is false for a poll without options.
func (p *Poll) Winner() (opt TripOption, ok bool) {
	best := -1
	for i, o := range p.Options {
		if best == -1 || o.Votes > p.Options[best].Votes {
			best = i
		}
	}
	if best == -1 {
		return TripOption{}, false
	}
	return p.Options[best], true
}

func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// Clone returns a deep copy so callers can mutate without aliasing stored data.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	c := *p
	c.Options = make([]TripOption, len(p.Options))
	copy(c.Options, p.Options)
	c.Voters = make([]string, len(p.Voters))
	copy(c.Voters, p.Voters)
	return &c
}
