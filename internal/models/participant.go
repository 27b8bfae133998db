package models

import "time"

type TravelMode string

const (
	TravelModeWalk  TravelMode = "Walk"
	TravelModeDrive TravelMode = "Drive"
	TravelModeUber  TravelMode = "Uber/Taxi"
)

type Preferences struct {
	ActivityType string     `json:"activityType,omitempty"`
	Diet         string     `json:"diet,omitempty"`
	Price        *int       `json:"price,omitempty" binding:"omitempty,min=0,max=4"`
	TravelMode   TravelMode `json:"travelMode,omitempty" binding:"omitempty,oneof=Walk Drive Uber/Taxi"`
}

// Participant is written once when someone joins; the location is a snapshot,
// not tracked afterwards.
type Participant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Avatar      string       `json:"avatar"`
	UserID      string       `json:"userId,omitempty"`
	Location    *LatLng      `json:"location,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	JoinedAt    time.Time    `json:"joinedAt"`
}

const DefaultAvatar = "default_avatar_url"
