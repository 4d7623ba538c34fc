package election

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the voting modality of an election or of a single voter
type Channel string

const (
	ChannelOnsite Channel = "ONSITE"
	ChannelOnline Channel = "ONLINE"
	ChannelHybrid Channel = "HYBRID"
)

// ParseChannel normalises a channel name. HYBRID is only valid for elections.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToUpper(strings.TrimSpace(s))); c {
	case ChannelOnsite, ChannelOnline, ChannelHybrid:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, s)
	}
}

// KeyStatus is the lifecycle state of an election key
type KeyStatus string

const (
	KeyPending KeyStatus = "PENDING"
	KeyCreated KeyStatus = "CREATED"
	KeyFailed  KeyStatus = "FAILED"
)

// Election is the aggregate root. Date fields that are not always configured are pointers.
type Election struct {
	ID                    string     `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	Description           string     `json:"description" db:"description"`
	Location              string     `json:"location" db:"location"`
	Channel               Channel    `json:"channel" db:"channel"`
	PublishAt             *time.Time `json:"publish_at,omitempty" db:"publish_at"`
	RegistrationOpensAt   *time.Time `json:"registration_opens_at,omitempty" db:"registration_opens_at"`
	RegistrationClosesAt  *time.Time `json:"registration_closes_at,omitempty" db:"registration_closes_at"`
	VotingOpensAt         time.Time  `json:"voting_opens_at" db:"voting_opens_at"`
	VotingClosesAt        time.Time  `json:"voting_closes_at" db:"voting_closes_at"`
	ResultAnnounceOpensAt *time.Time `json:"result_announce_opens_at,omitempty" db:"result_announce_opens_at"`
	ResultAnnounceEndsAt  *time.Time `json:"result_announce_ends_at,omitempty" db:"result_announce_ends_at"`
	IsCancelled           bool       `json:"is_cancelled" db:"is_cancelled"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// HasResultWindow reports whether an announcement window has been configured
func (e *Election) HasResultWindow() bool {
	return e.ResultAnnounceOpensAt != nil && e.ResultAnnounceEndsAt != nil
}

// Validate checks the date invariants of the election.
func (e *Election) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	switch e.Channel {
	case ChannelOnsite, ChannelOnline, ChannelHybrid:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, e.Channel)
	}
	if !e.VotingOpensAt.Before(e.VotingClosesAt) {
		return fmt.Errorf("%w: voting must open before it closes", ErrInvalidSchedule)
	}
	if (e.RegistrationOpensAt == nil) != (e.RegistrationClosesAt == nil) {
		return fmt.Errorf("%w: registration window needs both ends", ErrInvalidSchedule)
	}
	if e.RegistrationOpensAt != nil {
		if e.Channel != ChannelHybrid {
			return fmt.Errorf("%w: registration window applies to HYBRID elections only", ErrInvalidSchedule)
		}
		if !e.RegistrationOpensAt.Before(*e.RegistrationClosesAt) {
			return fmt.Errorf("%w: registration must open before it closes", ErrInvalidSchedule)
		}
		if e.RegistrationClosesAt.After(e.VotingOpensAt) {
			return fmt.Errorf("%w: registration must close before voting opens", ErrInvalidSchedule)
		}
	}
	if (e.ResultAnnounceOpensAt == nil) != (e.ResultAnnounceEndsAt == nil) {
		return fmt.Errorf("%w: result window needs both ends", ErrInvalidSchedule)
	}
	if e.HasResultWindow() {
		return ValidateResultWindow(e, *e.ResultAnnounceOpensAt, *e.ResultAnnounceEndsAt)
	}
	return nil
}

// ValidateResultWindow checks a candidate announcement window against the voting window
func ValidateResultWindow(e *Election, opensAt, endsAt time.Time) error {
	if !opensAt.Before(endsAt) {
		return fmt.Errorf("%w: result window must open before it ends", ErrInvalidSchedule)
	}
	if opensAt.Before(e.VotingClosesAt) {
		return fmt.Errorf("%w: result window must not open before voting closes", ErrInvalidSchedule)
	}
	return nil
}

// EligibleVoter links an external user identity to one election
type EligibleVoter struct {
	ID         string    `json:"id" db:"id"`
	ElectionID string    `json:"election_id" db:"election_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Channel    Channel   `json:"channel" db:"channel"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Candidate is a choice on the ballot of one election
type Candidate struct {
	ID              string    `json:"id" db:"id"`
	ElectionID      string    `json:"election_id" db:"election_id"`
	Number          int       `json:"number" db:"number"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	ProfileImageRef string    `json:"profile_image_ref,omitempty" db:"profile_image_ref"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Ballot is immutable once stored
type Ballot struct {
	ID                string    `json:"id" db:"id"`
	ElectionID        string    `json:"election_id" db:"election_id"`
	VoterID           string    `json:"voter_id" db:"voter_id"`
	EncryptedPayload  []byte    `json:"-" db:"encrypted_payload"`
	CastLocation      string    `json:"cast_location,omitempty" db:"cast_location"`
	CastProofImageRef string    `json:"cast_proof_image_ref,omitempty" db:"cast_proof_image_ref"`
	CastAt            time.Time `json:"cast_at" db:"cast_at"`
}

// ElectionKey holds the public half of the election key pair and a reference to the private half.
type ElectionKey struct {
	ElectionID    string    `json:"election_id" db:"election_id"`
	Scheme        string    `json:"scheme" db:"scheme"`
	PublicKey     []byte    `json:"public_key,omitempty" db:"public_key"`
	PrivateKeyRef string    `json:"-" db:"private_key_ref"`
	Status        KeyStatus `json:"status" db:"status"`
	FailureReason string    `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// BallotChoice is the plaintext that gets encrypted into a ballot
type BallotChoice struct {
	CandidateID string `json:"candidateId"`
}

// CastProof is carried by proctored ONSITE casts only
type CastProof struct {
	Location string `json:"location"`
	ImageRef string `json:"image_ref"`
}

// Empty reports whether neither proof field is set
func (p *CastProof) Empty() bool {
	return p == nil || (p.Location == "" && p.ImageRef == "")
}

// Complete reports whether both proof fields are set
func (p *CastProof) Complete() bool {
	return p != nil && p.Location != "" && p.ImageRef != ""
}

// VoterElection pairs a voter record with the election it belongs to
type VoterElection struct {
	Voter    EligibleVoter
	Election Election
}
