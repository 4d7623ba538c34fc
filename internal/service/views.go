package service

import (
	"time"

	"election-engine/internal/election"
)

// ElectionInput is the editable part of an election
type ElectionInput struct {
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	Channel              string     `json:"channel"`
	RegistrationOpensAt  *time.Time `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`
	VotingOpensAt        time.Time  `json:"voting_opens_at"`
	VotingClosesAt       time.Time  `json:"voting_closes_at"`
}

type CandidateInput struct {
	Number          int    `json:"number"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ProfileImageRef string `json:"profile_image_ref"`
}

// VoterInput enrols one user. An empty channel defaults to the election
// channel, or ONSITE for HYBRID elections.
type VoterInput struct {
	UserID  string `json:"user_id"`
	Channel string `json:"channel"`
}

// CastInput carries the choice and, for ONSITE voters, the proctoring proof
type CastInput struct {
	CandidateID string `json:"candidate_id"`
	Location    string `json:"cast_location,omitempty"`
	ImageRef    string `json:"cast_proof_image_ref,omitempty"`
}

// ElectionItem is an election with its derived phase
type ElectionItem struct {
	election.Election
	Phase election.Phase `json:"phase"`
}

type ElectionPage struct {
	Elections []ElectionItem `json:"elections"`
	Total     int            `json:"total"`
}

// ElectionSummary is one row of a voter's election list
type ElectionSummary struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Description           string            `json:"description"`
	Location              string            `json:"location"`
	Channel               election.Channel  `json:"channel"`
	VoterChannel          election.Channel  `json:"voter_channel"`
	Phase                 election.Phase    `json:"phase"`
	RegistrationState     *election.Channel `json:"registration_state"`
	IsCancelled           bool              `json:"is_cancelled"`
	IsVoted               bool              `json:"is_voted"`
	TurnoutPercent        *float64          `json:"turnout_percent"`
	RegistrationOpensAt   *time.Time        `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt  *time.Time        `json:"registration_closes_at,omitempty"`
	VotingOpensAt         time.Time         `json:"voting_opens_at"`
	VotingClosesAt        time.Time         `json:"voting_closes_at"`
	ResultAnnounceOpensAt *time.Time        `json:"result_announce_opens_at,omitempty"`
	ResultAnnounceEndsAt  *time.Time        `json:"result_announce_ends_at,omitempty"`
}

// ElectionDetail is the full view of one election
type ElectionDetail struct {
	Election       election.Election    `json:"election"`
	Phase          election.Phase       `json:"phase"`
	Candidates     []election.Candidate `json:"candidates"`
	KeyStatus      *election.KeyStatus  `json:"key_status"`
	KeyScheme      string               `json:"key_scheme,omitempty"`
	PublicKey      []byte               `json:"public_key,omitempty"`
	EligibleVoters int                  `json:"eligible_voters"`
	CastBallots    int                  `json:"cast_ballots"`
}

// PublishResult reports the published election and the outcome of key generation
type PublishResult struct {
	Election election.Election     `json:"election"`
	Key      *election.ElectionKey `json:"key,omitempty"`
}

// BallotReceipt lets a voter confirm later that their ballot was counted unchanged
type BallotReceipt struct {
	BallotID    string    `json:"ballot_id"`
	ElectionID  string    `json:"election_id"`
	CastAt      time.Time `json:"cast_at"`
	Fingerprint string    `json:"fingerprint"`
}
