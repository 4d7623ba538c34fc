package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"election-engine/internal/ballotbox"
	"election-engine/internal/database"
	"election-engine/internal/election"
	"election-engine/internal/tally"
	"election-engine/pkg/logger"
)

// ListVisibleElections returns the elections userID is enrolled in and may currently see
func (s *Service) ListVisibleElections(ctx context.Context, userID string) ([]ElectionSummary, error) {
	rows, err := s.store.ListVoterElections(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	summaries := make([]ElectionSummary, 0, len(rows))
	for i := range rows {
		e, v := &rows[i].Election, &rows[i].Voter
		if !s.classifier.IsVisible(e, v, now) {
			continue
		}
		summary, err := s.summarize(ctx, e, v, now)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, e *election.Election, v *election.EligibleVoter, now time.Time) (*ElectionSummary, error) {
	voted, err := s.store.HasBallot(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.store.CountEligibleVoters(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	cast, err := s.store.CountBallots(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	var turnout *float64
	if eligible > 0 {
		pct := 100 * float64(cast) / float64(eligible)
		turnout = &pct
	}

	return &ElectionSummary{
		ID:                    e.ID,
		Name:                  e.Name,
		Description:           e.Description,
		Location:              e.Location,
		Channel:               e.Channel,
		VoterChannel:          v.Channel,
		Phase:                 election.PhaseAt(e, now),
		RegistrationState:     election.RegistrationState(e, v),
		IsCancelled:           e.IsCancelled,
		IsVoted:               voted,
		TurnoutPercent:        turnout,
		RegistrationOpensAt:   e.RegistrationOpensAt,
		RegistrationClosesAt:  e.RegistrationClosesAt,
		VotingOpensAt:         e.VotingOpensAt,
		VotingClosesAt:        e.VotingClosesAt,
		ResultAnnounceOpensAt: e.ResultAnnounceOpensAt,
		ResultAnnounceEndsAt:  e.ResultAnnounceEndsAt,
	}, nil
}

// visibleTo loads an election and the voter record of userID. Elections the
// voter is not enrolled in or cannot see are reported as not found.
func (s *Service) visibleTo(ctx context.Context, electionID, userID string) (*election.Election, *election.EligibleVoter, error) {
	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.store.GetEligibleVoter(ctx, electionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !s.classifier.IsVisible(e, v, s.clock.Now()) {
		return nil, nil, fmt.Errorf("election %s: %w", electionID, election.ErrNotFound)
	}
	return e, v, nil
}

// GetVoterElection returns the detail of an election as seen by one of its voters
func (s *Service) GetVoterElection(ctx context.Context, electionID, userID string) (*ElectionDetail, error) {
	e, _, err := s.visibleTo(ctx, electionID, userID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, e)
}

// Register lets a HYBRID voter choose ONSITE or ONLINE while registration is open
func (s *Service) Register(ctx context.Context, electionID, userID, channel string) (*election.EligibleVoter, error) {
	e, v, err := s.visibleTo(ctx, electionID, userID)
	if err != nil {
		return nil, err
	}
	if e.Channel != election.ChannelHybrid {
		return nil, fmt.Errorf("%w: registration applies to HYBRID elections only", election.ErrInvalidEligibility)
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}
	now := s.clock.Now()
	if !election.Published(e, now) || !election.RegistrationOpen(e, now) {
		return nil, fmt.Errorf("%w: registration is closed", election.ErrInvalidPhase)
	}

	ch, err := election.ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := election.CheckVoterChannel(e.Channel, ch); err != nil {
		return nil, err
	}

	voted, err := s.store.HasBallot(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, election.ErrDuplicateVote
	}

	if v.Channel != ch {
		if err := s.store.UpdateVoterChannel(ctx, v.ID, ch, now); err != nil {
			return nil, err
		}
		v.Channel = ch
		v.UpdatedAt = now
	}
	s.audit(ctx, database.AuditVoterRegistered, logger.HashIdentity(userID), e.ID, string(ch))
	return v, nil
}

// CastBallot records the ballot of userID. Errors other than the typed kinds are
// logged and replaced so no internal detail reaches the voter.
func (s *Service) CastBallot(ctx context.Context, electionID, userID string, in CastInput) (*BallotReceipt, error) {
	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return nil, s.redactCast(err, electionID)
	}
	v, err := s.store.GetEligibleVoter(ctx, electionID, userID)
	if err != nil {
		return nil, s.redactCast(err, electionID)
	}

	var proof *election.CastProof
	if in.Location != "" || in.ImageRef != "" {
		proof = &election.CastProof{Location: in.Location, ImageRef: in.ImageRef}
	}

	b, err := s.box.Cast(ctx, e, v, election.BallotChoice{CandidateID: in.CandidateID}, proof)
	if err != nil {
		return nil, s.redactCast(err, electionID)
	}

	s.audit(ctx, database.AuditBallotCast, logger.HashIdentity(userID), e.ID, string(v.Channel))
	return &BallotReceipt{
		BallotID:    b.ID,
		ElectionID:  b.ElectionID,
		CastAt:      b.CastAt,
		Fingerprint: ballotbox.Fingerprint(b.EncryptedPayload),
	}, nil
}

var castKinds = []error{
	election.ErrNotFound,
	election.ErrInvalidPhase,
	election.ErrCancelled,
	election.ErrKeyNotReady,
	election.ErrDuplicateVote,
	election.ErrInvalidEligibility,
	election.ErrInvalidInput,
}

func (s *Service) redactCast(err error, electionID string) error {
	for _, kind := range castKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	s.log.WithError(err).Error("cast failed", "election_id", electionID)
	return errCastFailed
}

// GetVoterResults returns the result report to a voter of the election
func (s *Service) GetVoterResults(ctx context.Context, electionID, userID string) (*tally.Report, error) {
	e, _, err := s.visibleTo(ctx, electionID, userID)
	if err != nil {
		return nil, err
	}
	return s.tally.Compute(ctx, e)
}

// IsCastFailure reports whether err is the redacted cast failure
func IsCastFailure(err error) bool {
	return errors.Is(err, errCastFailed)
}
