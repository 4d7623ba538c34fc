package models

import "time"

// CreateElectionRequest represents election creation and update requests
type CreateElectionRequest struct {
	Name                 string     `json:"name" binding:"required" example:"Board election 2024"`
	Description          string     `json:"description" example:"Annual board of directors election"`
	Location             string     `json:"location" example:"Head office"`
	Channel              string     `json:"channel" binding:"required" example:"HYBRID"`
	RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty" example:"2023-12-10T00:00:00Z"`
	RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty" example:"2023-12-20T00:00:00Z"`
	VotingOpensAt        time.Time  `json:"voting_opens_at" binding:"required" example:"2024-01-01T00:00:00Z"`
	VotingClosesAt       time.Time  `json:"voting_closes_at" binding:"required" example:"2024-01-01T23:59:59Z"`
}

// CandidateRequest adds one candidate to a draft election
type CandidateRequest struct {
	Number          int    `json:"number" binding:"required,min=1" example:"1"`
	Name            string `json:"name" binding:"required" example:"Jane Doe"`
	Description     string `json:"description" example:"Finance committee chair"`
	ProfileImageRef string `json:"profile_image_ref,omitempty" example:"images/jane.png"`
}

// VoterRequest enrols one user
type VoterRequest struct {
	UserID  string `json:"user_id" binding:"required" example:"user-42"`
	Channel string `json:"channel,omitempty" example:"ONLINE"`
}

// AddVotersRequest enrols a batch of users. The batch is all-or-nothing.
type AddVotersRequest struct {
	Voters []VoterRequest `json:"voters" binding:"required,min=1,dive"`
}

// PublishRequest sets the publication time. An absent time publishes now.
type PublishRequest struct {
	PublishAt *time.Time `json:"publish_at,omitempty" example:"2023-12-01T00:00:00Z"`
}

// ResultWindowRequest configures the announcement window
type ResultWindowRequest struct {
	OpensAt time.Time `json:"opens_at" binding:"required" example:"2024-01-02T00:00:00Z"`
	EndsAt  time.Time `json:"ends_at" binding:"required" example:"2024-01-09T00:00:00Z"`
}

// RegisterRequest picks the channel of a HYBRID voter
type RegisterRequest struct {
	Channel string `json:"channel" binding:"required" example:"ONLINE"`
}

// CastBallotRequest carries the choice and, for ONSITE voters, the proctoring proof
type CastBallotRequest struct {
	CandidateID       string `json:"candidate_id" binding:"required" example:"3f0c..."`
	CastLocation      string `json:"cast_location,omitempty" example:"Room 101"`
	CastProofImageRef string `json:"cast_proof_image_ref,omitempty" example:"proofs/abc.jpg"`
}

// ElectionFilterRequest filters the admin election list
type ElectionFilterRequest struct {
	Name      string `form:"name"`
	Channel   string `form:"channel"`
	Cancelled *bool  `form:"cancelled"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

// PaginationRequest represents pagination parameters
type PaginationRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
