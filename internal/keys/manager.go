// Package keys runs the per-election key lifecycle:
// PENDING -> CREATED on success, PENDING -> FAILED on a generation error and
// FAILED -> PENDING on an explicit reload. Key custody itself is delegated.
package keys

import (
	"context"
	"errors"
	"fmt"

	"election-engine/internal/election"
	"election-engine/pkg/logger"
)

// Store is the persistence the manager needs
type Store interface {
	GetKey(ctx context.Context, electionID string) (*election.ElectionKey, error)
	CreateKey(ctx context.Context, k *election.ElectionKey) error
	TransitionKey(ctx context.Context, k *election.ElectionKey, from election.KeyStatus) error
	CountBallots(ctx context.Context, electionID string) (int, error)
}

// Generator creates key pairs and keeps the private halves
type Generator interface {
	SchemeName() string
	GenerateKeyPair(ctx context.Context) (publicKey []byte, privateKeyRef string, err error)
}

type Manager struct {
	store  Store
	gen    Generator
	locker Locker
	clock  election.Clock
	log    *logger.Logger
}

func NewManager(store Store, gen Generator, locker Locker, clock election.Clock, log *logger.Logger) *Manager {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if clock == nil {
		clock = election.SystemClock{}
	}
	return &Manager{
		store:  store,
		gen:    gen,
		locker: locker,
		clock:  clock,
		log:    log.WithComponent("keys"),
	}
}

// Provision creates the key of a freshly published election. The returned key
// is CREATED, or FAILED together with an ErrKeyGenerationFailed error.
func (m *Manager) Provision(ctx context.Context, electionID string) (*election.ElectionKey, error) {
	unlock, err := m.locker.Lock(ctx, electionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := m.clock.Now()
	k := &election.ElectionKey{
		ElectionID: electionID,
		Scheme:     m.gen.SchemeName(),
		Status:     election.KeyPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.CreateKey(ctx, k); err != nil {
		if errors.Is(err, election.ErrConflict) {
			return nil, err
		}
		// no record exists yet; Reload creates one
		return nil, fmt.Errorf("%w: record key: %v", election.ErrKeyGenerationFailed, err)
	}
	return m.generate(ctx, k)
}

// Reload regenerates a key that failed. It is refused for CREATED keys and once
// any ballot exists. An election whose key record is missing gets a new one.
// A PENDING key seen under the election lock belongs to an attempt that died
// before recording its outcome, so it is regenerated like a FAILED one.
func (m *Manager) Reload(ctx context.Context, electionID string) (*election.ElectionKey, error) {
	unlock, err := m.locker.Lock(ctx, electionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cast, err := m.store.CountBallots(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if cast > 0 {
		return nil, fmt.Errorf("%w: %d ballots were cast under the current key", election.ErrKeyRegenerationNotAllowed, cast)
	}

	now := m.clock.Now()
	k, err := m.store.GetKey(ctx, electionID)
	switch {
	case errors.Is(err, election.ErrNotFound):
		k = &election.ElectionKey{
			ElectionID: electionID,
			Scheme:     m.gen.SchemeName(),
			Status:     election.KeyPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := m.store.CreateKey(ctx, k); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case k.Status == election.KeyCreated:
		return nil, fmt.Errorf("%w: key is %s", election.ErrKeyRegenerationNotAllowed, k.Status)
	case k.Status == election.KeyPending:
		m.log.Warning("recovering abandoned pending key", "election_id", electionID)
		k.Scheme = m.gen.SchemeName()
		k.FailureReason = ""
		k.UpdatedAt = now
	default:
		k.Scheme = m.gen.SchemeName()
		k.Status = election.KeyPending
		k.FailureReason = ""
		k.UpdatedAt = now
		if err := m.store.TransitionKey(ctx, k, election.KeyFailed); err != nil {
			return nil, err
		}
	}

	m.log.Info("reloading election key", "election_id", electionID)
	return m.generate(ctx, k)
}

// generate moves a PENDING key to CREATED or FAILED. It never retries.
func (m *Manager) generate(ctx context.Context, k *election.ElectionKey) (*election.ElectionKey, error) {
	pub, ref, genErr := m.gen.GenerateKeyPair(ctx)

	next := *k
	next.UpdatedAt = m.clock.Now()
	if genErr != nil {
		next.Status = election.KeyFailed
		next.FailureReason = genErr.Error()
	} else {
		next.Status = election.KeyCreated
		next.PublicKey = pub
		next.PrivateKeyRef = ref
	}

	if err := m.store.TransitionKey(ctx, &next, election.KeyPending); err != nil {
		if genErr != nil {
			return nil, fmt.Errorf("%w: %v (recording failure: %v)", election.ErrKeyGenerationFailed, genErr, err)
		}
		return m.recordFailure(ctx, k, fmt.Errorf("record key: %w", err))
	}

	if genErr != nil {
		m.log.SecurityLogger("key_generation_failed", k.ElectionID, genErr.Error())
		return &next, fmt.Errorf("%w: %v", election.ErrKeyGenerationFailed, genErr)
	}

	m.log.Info("election key created", "election_id", k.ElectionID, "scheme", next.Scheme)
	return &next, nil
}

// recordFailure makes a best-effort attempt to move a PENDING key to FAILED
// after its outcome could not be stored. When even that fails the key stays
// PENDING and Reload recovers it.
func (m *Manager) recordFailure(ctx context.Context, k *election.ElectionKey, cause error) (*election.ElectionKey, error) {
	failed := *k
	failed.Status = election.KeyFailed
	failed.PublicKey = nil
	failed.PrivateKeyRef = ""
	failed.FailureReason = "key could not be stored"
	failed.UpdatedAt = m.clock.Now()

	m.log.SecurityLogger("key_generation_failed", k.ElectionID, cause.Error())
	if err := m.store.TransitionKey(ctx, &failed, election.KeyPending); err != nil {
		m.log.WithError(err).Error("recording key failure", "election_id", k.ElectionID)
		return nil, fmt.Errorf("%w: %v", election.ErrKeyGenerationFailed, cause)
	}
	return &failed, fmt.Errorf("%w: %v", election.ErrKeyGenerationFailed, cause)
}

// Status returns the key record of an election
func (m *Manager) Status(ctx context.Context, electionID string) (*election.ElectionKey, error) {
	return m.store.GetKey(ctx, electionID)
}

// ReadyKey returns the key only when ballots can be encrypted under it
func (m *Manager) ReadyKey(ctx context.Context, electionID string) (*election.ElectionKey, error) {
	k, err := m.store.GetKey(ctx, electionID)
	if errors.Is(err, election.ErrNotFound) {
		return nil, fmt.Errorf("%w: no key", election.ErrKeyNotReady)
	}
	if err != nil {
		return nil, err
	}
	if k.Status != election.KeyCreated {
		return nil, fmt.Errorf("%w: key is %s", election.ErrKeyNotReady, k.Status)
	}
	return k, nil
}
