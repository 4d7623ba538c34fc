// Package service exposes the election engine to administration and voter
// surfaces. It composes the clock, classifier, key manager, ballot box and
// tally over one store.
package service

import (
	"context"
	"errors"
	"time"

	"election-engine/internal/ballotbox"
	"election-engine/internal/custody"
	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
	"election-engine/internal/keys"
	"election-engine/internal/tally"
	"election-engine/pkg/logger"
)

// errCastFailed replaces unexpected cast errors before they reach a voter
var errCastFailed = errors.New("ballot could not be recorded")

// Options wires the collaborators of a Service
type Options struct {
	Store     *repositories.Store
	Custodian *custody.Custodian
	Logger    *logger.Logger

	// optional
	Clock             election.Clock
	Locker            keys.Locker
	ResultCache       tally.Cache
	OnsiteGracePeriod time.Duration
	TallyWorkers      int
}

type Service struct {
	store      *repositories.Store
	keys       *keys.Manager
	box        *ballotbox.Box
	tally      *tally.Tally
	classifier *election.Classifier
	clock      election.Clock
	log        *logger.Logger
}

func New(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = election.SystemClock{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	classifier := election.NewClassifier(opts.OnsiteGracePeriod)
	km := keys.NewManager(opts.Store, opts.Custodian, opts.Locker, clock, log)

	tallyOpts := []tally.Option{tally.WithWorkers(opts.TallyWorkers)}
	if opts.ResultCache != nil {
		tallyOpts = append(tallyOpts, tally.WithCache(opts.ResultCache))
	}

	return &Service{
		store:      opts.Store,
		keys:       km,
		box:        ballotbox.New(opts.Store, km, opts.Custodian, classifier, clock, log),
		tally:      tally.New(opts.Store, km, opts.Custodian, clock, log, tallyOpts...),
		classifier: classifier,
		clock:      clock,
		log:        log.WithComponent("service"),
	}
}

// Now returns the service clock reading
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// audit appends an audit row. Failures are logged and never returned.
func (s *Service) audit(ctx context.Context, action, actor, electionID, details string) {
	s.log.AuditLogger(action, actor, electionID, details)
	err := s.store.InsertAuditLog(ctx, &database.AuditLog{
		Action:     action,
		Actor:      actor,
		ElectionID: electionID,
		Details:    details,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		s.log.WithError(err).Error("failed to write audit log", "action", action, "election_id", electionID)
	}
}

// ListAuditLogs pages through the audit trail. Empty electionID or action do not filter.
func (s *Service) ListAuditLogs(ctx context.Context, electionID, action string, limit, offset int) ([]database.AuditLog, error) {
	if electionID != "" {
		if _, err := s.store.GetElection(ctx, electionID); err != nil {
			return nil, err
		}
	}
	return s.store.ListAuditLogs(ctx, electionID, action, limit, offset)
}
