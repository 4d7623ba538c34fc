package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
	"election-engine/internal/tally"
)

func (in ElectionInput) apply(e *election.Election) error {
	ch, err := election.ParseChannel(in.Channel)
	if err != nil {
		return err
	}
	e.Name = strings.TrimSpace(in.Name)
	e.Description = in.Description
	e.Location = in.Location
	e.Channel = ch
	e.RegistrationOpensAt = utcPtr(in.RegistrationOpensAt)
	e.RegistrationClosesAt = utcPtr(in.RegistrationClosesAt)
	e.VotingOpensAt = in.VotingOpensAt.UTC()
	e.VotingClosesAt = in.VotingClosesAt.UTC()
	return e.Validate()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func requireDraft(e *election.Election) error {
	if e.PublishAt != nil {
		return fmt.Errorf("%w: election %s is published", election.ErrInvalidPhase, e.ID)
	}
	return nil
}

// CreateElection stores a new DRAFT election
func (s *Service) CreateElection(ctx context.Context, actor string, in ElectionInput) (*election.Election, error) {
	now := s.clock.Now()
	e := &election.Election{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := in.apply(e); err != nil {
		return nil, err
	}
	if err := s.store.CreateElection(ctx, e); err != nil {
		return nil, err
	}
	s.audit(ctx, database.AuditElectionCreated, actor, e.ID, e.Name)
	return e, nil
}

// UpdateElection rewrites a DRAFT election
func (s *Service) UpdateElection(ctx context.Context, actor, id string, in ElectionInput) (*election.Election, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(e); err != nil {
		return nil, err
	}
	previous := e.Channel
	if err := in.apply(e); err != nil {
		return nil, err
	}
	if e.Channel != previous {
		if err := s.checkEnrolledChannels(ctx, e); err != nil {
			return nil, err
		}
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateDraft(ctx, e); err != nil {
		return nil, err
	}
	s.audit(ctx, database.AuditElectionUpdated, actor, e.ID, e.Name)
	return e, nil
}

// checkEnrolledChannels refuses a channel change that would strand an enrolled voter
func (s *Service) checkEnrolledChannels(ctx context.Context, e *election.Election) error {
	const page = 500
	for offset := 0; ; offset += page {
		voters, err := s.store.ListEligibleVoters(ctx, e.ID, page, offset)
		if err != nil {
			return err
		}
		for _, v := range voters {
			if err := election.CheckVoterChannel(e.Channel, v.Channel); err != nil {
				return fmt.Errorf("voter %s: %w", v.UserID, err)
			}
		}
		if len(voters) < page {
			return nil
		}
	}
}

// DeleteElection removes a DRAFT election with its voters, candidates and key
func (s *Service) DeleteElection(ctx context.Context, actor, id string) error {
	err := s.store.WithTx(ctx, func(tx *repositories.Store) error {
		return tx.DeleteElectionCascade(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, database.AuditElectionDeleted, actor, id, "")
	return nil
}

// ListElections returns elections for administration together with their phase
func (s *Service) ListElections(ctx context.Context, filter repositories.ElectionFilter) (*ElectionPage, error) {
	elections, total, err := s.store.ListElections(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	page := &ElectionPage{Elections: make([]ElectionItem, 0, len(elections)), Total: total}
	for _, e := range elections {
		page.Elections = append(page.Elections, ElectionItem{Election: e, Phase: election.PhaseAt(&e, now)})
	}
	return page, nil
}

// AddCandidate adds a candidate to a DRAFT election
func (s *Service) AddCandidate(ctx context.Context, actor, electionID string, in CandidateInput) (*election.Candidate, error) {
	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(e); err != nil {
		return nil, err
	}
	if in.Number <= 0 {
		return nil, fmt.Errorf("%w: candidate number must be positive", election.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: candidate name is required", election.ErrInvalidInput)
	}

	c := &election.Candidate{
		ID:              uuid.NewString(),
		ElectionID:      e.ID,
		Number:          in.Number,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		ProfileImageRef: in.ProfileImageRef,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.store.AddCandidate(ctx, c); err != nil {
		return nil, err
	}
	s.audit(ctx, database.AuditCandidateAdded, actor, e.ID, fmt.Sprintf("#%d %s", c.Number, c.Name))
	return c, nil
}

// ListCandidates returns the ballot of an election in number order
func (s *Service) ListCandidates(ctx context.Context, electionID string) ([]election.Candidate, error) {
	if _, err := s.store.GetElection(ctx, electionID); err != nil {
		return nil, err
	}
	return s.store.ListCandidates(ctx, electionID)
}

// AddEligibleVoters enrols users in a DRAFT election. The batch is all or nothing.
func (s *Service) AddEligibleVoters(ctx context.Context, actor, electionID string, in []VoterInput) ([]election.EligibleVoter, error) {
	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(e); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no voters given", election.ErrInvalidInput)
	}

	now := s.clock.Now()
	seen := make(map[string]bool, len(in))
	voters := make([]election.EligibleVoter, 0, len(in))
	for _, vi := range in {
		userID := strings.TrimSpace(vi.UserID)
		if userID == "" {
			return nil, fmt.Errorf("%w: user id is required", election.ErrInvalidInput)
		}
		if seen[userID] {
			return nil, fmt.Errorf("%w: user %s listed twice", election.ErrInvalidInput, userID)
		}
		seen[userID] = true

		ch, err := voterChannel(e, vi.Channel)
		if err != nil {
			return nil, err
		}
		voters = append(voters, election.EligibleVoter{
			ID:         uuid.NewString(),
			ElectionID: e.ID,
			UserID:     userID,
			Channel:    ch,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	err = s.store.WithTx(ctx, func(tx *repositories.Store) error {
		for i := range voters {
			if err := tx.AddEligibleVoter(ctx, &voters[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, database.AuditVotersAdded, actor, e.ID, fmt.Sprintf("%d voters", len(voters)))
	return voters, nil
}

func voterChannel(e *election.Election, raw string) (election.Channel, error) {
	if strings.TrimSpace(raw) == "" {
		if e.Channel == election.ChannelHybrid {
			return election.ChannelOnsite, nil
		}
		return e.Channel, nil
	}
	ch, err := election.ParseChannel(raw)
	if err != nil {
		return "", err
	}
	if err := election.CheckVoterChannel(e.Channel, ch); err != nil {
		return "", err
	}
	return ch, nil
}

// Publish sets publishAt (now when zero) and generates the election key. When key
// generation fails the election stays published, the key is FAILED and the error
// wraps ErrKeyGenerationFailed; ReloadKey retries it.
func (s *Service) Publish(ctx context.Context, actor, id string, publishAt time.Time) (*PublishResult, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(e); err != nil {
		return nil, err
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if publishAt.IsZero() {
		publishAt = s.clock.Now()
	}
	publishAt = publishAt.UTC()
	if !publishAt.Before(e.VotingClosesAt) {
		return nil, fmt.Errorf("%w: cannot publish after voting closes", election.ErrInvalidSchedule)
	}

	candidates, err := s.store.ListCandidates(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: election has no candidates", election.ErrInvalidInput)
	}

	if err := s.store.PublishElection(ctx, e.ID, publishAt); err != nil {
		return nil, err
	}
	e.PublishAt = &publishAt
	e.UpdatedAt = publishAt
	s.audit(ctx, database.AuditElectionPublished, actor, e.ID, publishAt.Format(time.RFC3339))

	key, err := s.keys.Provision(ctx, e.ID)
	result := &PublishResult{Election: *e, Key: key}
	if err != nil {
		s.log.WithError(err).Error("key generation failed on publish", "election_id", e.ID)
		return result, err
	}
	return result, nil
}

// Cancel flags the election as cancelled. Cancelling again is a no-op.
func (s *Service) Cancel(ctx context.Context, actor, id string) (*election.Election, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsCancelled {
		return e, nil
	}
	now := s.clock.Now()
	if err := s.store.CancelElection(ctx, id, now); err != nil {
		return nil, err
	}
	e.IsCancelled = true
	e.UpdatedAt = now
	s.audit(ctx, database.AuditElectionCancelled, actor, id, "")
	return e, nil
}

// ReloadKey regenerates the key of a published election whose key generation failed
func (s *Service) ReloadKey(ctx context.Context, actor, id string) (*election.ElectionKey, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.PublishAt == nil {
		return nil, fmt.Errorf("%w: election is not published", election.ErrInvalidPhase)
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}

	key, err := s.keys.Reload(ctx, id)
	if key != nil {
		s.audit(ctx, database.AuditKeyReloaded, actor, id, string(key.Status))
	}
	return key, err
}

// AnnounceResult sets the result window once voting has closed. The window
// can only be set once.
func (s *Service) AnnounceResult(ctx context.Context, actor, id string, opensAt, endsAt time.Time) (*election.Election, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ResultAnnounceOpensAt != nil {
		return nil, fmt.Errorf("%w: result window already set", election.ErrInvalidPhase)
	}
	if phase := election.PhaseAt(e, s.clock.Now()); phase != election.PhaseClosedVote {
		return nil, fmt.Errorf("%w: results can be announced once voting has closed (phase %s)", election.ErrInvalidPhase, phase)
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}

	opensAt, endsAt = opensAt.UTC(), endsAt.UTC()
	if err := election.ValidateResultWindow(e, opensAt, endsAt); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.store.SetResultWindow(ctx, id, opensAt, endsAt, now); err != nil {
		return nil, err
	}
	e.ResultAnnounceOpensAt = &opensAt
	e.ResultAnnounceEndsAt = &endsAt
	e.UpdatedAt = now
	s.audit(ctx, database.AuditResultAnnounced, actor, id,
		fmt.Sprintf("%s..%s", opensAt.Format(time.RFC3339), endsAt.Format(time.RFC3339)))
	return e, nil
}

// GetElection returns the administrative view of an election
func (s *Service) GetElection(ctx context.Context, id string) (*ElectionDetail, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, e)
}

func (s *Service) detail(ctx context.Context, e *election.Election) (*ElectionDetail, error) {
	d := &ElectionDetail{Election: *e, Phase: election.PhaseAt(e, s.clock.Now())}

	var err error
	if d.Candidates, err = s.store.ListCandidates(ctx, e.ID); err != nil {
		return nil, err
	}
	if d.EligibleVoters, err = s.store.CountEligibleVoters(ctx, e.ID); err != nil {
		return nil, err
	}
	if d.CastBallots, err = s.store.CountBallots(ctx, e.ID); err != nil {
		return nil, err
	}

	key, err := s.keys.Status(ctx, e.ID)
	switch {
	case errors.Is(err, election.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		status := key.Status
		d.KeyStatus = &status
		d.KeyScheme = key.Scheme
		if key.Status == election.KeyCreated {
			d.PublicKey = key.PublicKey
		}
	}
	return d, nil
}

// GetResults computes the result report of an election
func (s *Service) GetResults(ctx context.Context, id string) (*tally.Report, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tally.Compute(ctx, e)
}
