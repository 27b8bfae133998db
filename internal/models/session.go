package models

import "time"

type Category string

const (
	CategoryFood         Category = "Food"
	CategoryDrinks       Category = "Drinks"
	CategoryCoffeeTea    Category = "Coffee/Tea"
	CategoryDessert      Category = "Dessert"
	CategoryScenicSpot   Category = "Scenic Spot"
	CategoryNoPreference Category = "No Preference"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryDrinks,
	CategoryCoffeeTea,
	CategoryDessert,
	CategoryScenicSpot,
	CategoryNoPreference,
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// VenueType is the place type searched for a category.
func (c Category) VenueType() string {
	switch c {
	case CategoryFood:
		return "restaurant"
	case CategoryDrinks:
		return "bar"
	case CategoryCoffeeTea:
		return "cafe"
	case CategoryDessert:
		return "bakery"
	case CategoryScenicSpot:
		return "tourist_attraction"
	default:
		return "point_of_interest"
	}
}

type PollState string

const (
	StateGatheringParticipants PollState = "gathering_participants"
	StateGeneratingOptions     PollState = "generating_options"
	StateVoting                PollState = "voting"
	StateCompleted             PollState = "completed"
	StateCancelled             PollState = "cancelled"
)

func (s PollState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

type Session struct {
	ID        string    `json:"id" mapstructure:"id"`
	HostID    string    `json:"hostId" mapstructure:"host_id"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"created_at"`
	Category  Category  `json:"category" mapstructure:"category"`
	PollState PollState `json:"pollState" mapstructure:"poll_state"`

	// GenerationLease is the token of the in-flight option generation. Empty
	// when no generation holds the session.
	GenerationLease string    `json:"-" mapstructure:"generation_lease"`
	LeaseExpiresAt  time.Time `json:"-" mapstructure:"lease_expires_at"`

	ClosedAt time.Time `json:"closedAt,omitzero" mapstructure:"closed_at"`
	WinnerID string    `json:"winnerId,omitempty" mapstructure:"winner_id"`
}

// LeaseHeld reports whether a generation currently owns the session.
func (s Session) LeaseHeld(now time.Time) bool {
	return s.GenerationLease != "" && now.Before(s.LeaseExpiresAt)
}
