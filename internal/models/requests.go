package models

// Request types

type CreateSessionRequest struct {
	Category string `json:"category" binding:"required"`
}

type JoinSessionRequest struct {
	Name        string       `json:"name" binding:"required,max=64"`
	Location    *LatLng      `json:"location" binding:"required"`
	Preferences *Preferences `json:"preferences"`
}

type VoteRequest struct {
	OptionID string `json:"optionId" binding:"required"`
}

// Response types

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type JoinSessionResponse struct {
	ParticipantID string `json:"participantId"`
}

// ActionResponse is returned by generate, vote, close and cancel.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type SessionDetails struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
}

type Result struct {
	SessionID  string       `json:"sessionId"`
	Winner     *TripOption  `json:"winner,omitempty"`
	TotalVotes int          `json:"totalVotes"`
	Options    []TripOption `json:"options"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
