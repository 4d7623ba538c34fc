// Package ballotbox accepts encrypted ballots, at most one per eligible voter.
package ballotbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"election-engine/internal/election"
	"election-engine/pkg/logger"
)

// Store is the persistence the box needs
type Store interface {
	HasBallot(ctx context.Context, voterID string) (bool, error)
	GetCandidate(ctx context.Context, electionID, candidateID string) (*election.Candidate, error)
	// InsertBallotIfAbsent must check and insert atomically
	InsertBallotIfAbsent(ctx context.Context, b *election.Ballot) error
}

// KeySource hands out keys that are ready for encryption
type KeySource interface {
	ReadyKey(ctx context.Context, electionID string) (*election.ElectionKey, error)
}

// Encrypter seals a payload under an election public key
type Encrypter interface {
	Encrypt(publicKey, payload []byte) ([]byte, error)
}

type Box struct {
	store      Store
	keys       KeySource
	enc        Encrypter
	classifier *election.Classifier
	clock      election.Clock
	log        *logger.Logger
}

func New(store Store, keys KeySource, enc Encrypter, classifier *election.Classifier, clock election.Clock, log *logger.Logger) *Box {
	if clock == nil {
		clock = election.SystemClock{}
	}
	return &Box{
		store:      store,
		keys:       keys,
		enc:        enc,
		classifier: classifier,
		clock:      clock,
		log:        log.WithComponent("ballotbox"),
	}
}

// Cast encrypts choice under the election key and stores it as the voter's only ballot.
// Preconditions are checked in order and the first failure is returned:
// open voting phase and channel eligibility, not cancelled, key ready, no earlier ballot.
func (b *Box) Cast(ctx context.Context, e *election.Election, v *election.EligibleVoter, choice election.BallotChoice, proof *election.CastProof) (*election.Ballot, error) {
	now := b.clock.Now()

	if phase := election.PhaseAt(e, now); phase != election.PhaseOpenVote {
		return nil, fmt.Errorf("%w: voting is not open (phase %s)", election.ErrInvalidPhase, phase)
	}
	if err := b.classifier.CheckCast(e, v, proof); err != nil {
		return nil, err
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}

	key, err := b.keys.ReadyKey(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	voted, err := b.store.HasBallot(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if voted {
		b.log.SecurityLogger("duplicate_vote_attempt", logger.HashIdentity(v.UserID), e.ID)
		return nil, election.ErrDuplicateVote
	}

	if _, err := b.store.GetCandidate(ctx, e.ID, choice.CandidateID); err != nil {
		if errors.Is(err, election.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown candidate %s", election.ErrInvalidInput, choice.CandidateID)
		}
		return nil, err
	}

	plaintext, err := json.Marshal(choice)
	if err != nil {
		return nil, fmt.Errorf("encode ballot: %w", err)
	}
	ciphertext, err := b.enc.Encrypt(key.PublicKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt ballot: %w", err)
	}

	ballot := &election.Ballot{
		ID:               uuid.NewString(),
		ElectionID:       e.ID,
		VoterID:          v.ID,
		EncryptedPayload: ciphertext,
		CastAt:           now,
	}
	if proof != nil {
		ballot.CastLocation = proof.Location
		ballot.CastProofImageRef = proof.ImageRef
	}

	if err := b.store.InsertBallotIfAbsent(ctx, ballot); err != nil {
		if errors.Is(err, election.ErrDuplicateVote) {
			b.log.SecurityLogger("duplicate_vote_attempt", logger.HashIdentity(v.UserID), e.ID)
		}
		return nil, err
	}

	b.log.VotingLogger("ballot_cast", logger.HashIdentity(v.UserID), e.ID, string(v.Channel))
	return ballot, nil
}

// Fingerprint is the hex SHA-256 of a stored ciphertext
func Fingerprint(ciphertext []byte) string {
	sum := sha256.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}
