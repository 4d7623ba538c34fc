// Package tally decrypts the ballots of an election once its result window
// opens and aggregates them into a report. Reports are computed on demand.
package tally

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"election-engine/internal/election"
	"election-engine/pkg/logger"
)

// DefaultWorkers bounds concurrent decryptions
const DefaultWorkers = 10

// Store is the persistence the tally reads
type Store interface {
	ListCandidates(ctx context.Context, electionID string) ([]election.Candidate, error)
	ListBallots(ctx context.Context, electionID string) ([]election.Ballot, error)
	CountEligibleVoters(ctx context.Context, electionID string) (int, error)
}

type KeySource interface {
	ReadyKey(ctx context.Context, electionID string) (*election.ElectionKey, error)
}

// Decrypter opens ciphertexts with the private key behind a reference
type Decrypter interface {
	Decrypt(ctx context.Context, privateKeyRef string, ciphertext []byte) ([]byte, error)
}

// Cache stores computed reports. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, electionID string) (*Report, bool, error)
	Set(ctx context.Context, electionID string, r *Report) error
}

type CandidateResult struct {
	CandidateID      string   `json:"candidate_id"`
	Number           int      `json:"number"`
	Name             string   `json:"name"`
	VoteCount        int      `json:"vote_count"`
	VoteSharePercent *float64 `json:"vote_share_percent"`
}

// Report is the published result of an election
type Report struct {
	ElectionID     string            `json:"election_id"`
	Candidates     []CandidateResult `json:"candidates"`
	CastBallots    int               `json:"cast_ballots"`
	EligibleVoters int               `json:"eligible_voters"`
	InvalidBallots int               `json:"invalid_ballots"`
	TurnoutPercent float64           `json:"turnout_percent"`
	Digest         string            `json:"digest"`
	ComputedAt     time.Time         `json:"computed_at"`
}

type Tally struct {
	store   Store
	keys    KeySource
	dec     Decrypter
	cache   Cache
	clock   election.Clock
	workers int
	log     *logger.Logger
}

// Option configures a Tally
type Option func(*Tally)

// WithCache enables report caching
func WithCache(c Cache) Option {
	return func(t *Tally) { t.cache = c }
}

// WithWorkers sets the decryption parallelism
func WithWorkers(n int) Option {
	return func(t *Tally) {
		if n > 0 {
			t.workers = n
		}
	}
}

func New(store Store, keys KeySource, dec Decrypter, clock election.Clock, log *logger.Logger, opts ...Option) *Tally {
	if clock == nil {
		clock = election.SystemClock{}
	}
	t := &Tally{
		store:   store,
		keys:    keys,
		dec:     dec,
		clock:   clock,
		workers: DefaultWorkers,
		log:     log.WithComponent("tally"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Compute returns the result report of e. It requires the RESULT_ANNOUNCE phase
// and fails with ErrUndefinedTurnout when the election has no eligible voters.
func (t *Tally) Compute(ctx context.Context, e *election.Election) (*Report, error) {
	now := t.clock.Now()
	if phase := election.PhaseAt(e, now); phase != election.PhaseResultAnnounce {
		return nil, fmt.Errorf("%w: results are not announced (phase %s)", election.ErrInvalidPhase, phase)
	}
	if e.IsCancelled {
		return nil, election.ErrCancelled
	}

	if t.cache != nil {
		if r, ok, err := t.cache.Get(ctx, e.ID); err != nil {
			t.log.Warning("result cache read failed", "election_id", e.ID, "error", err)
		} else if ok {
			return r, nil
		}
	}

	eligible, err := t.store.CountEligibleVoters(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if eligible == 0 {
		return nil, fmt.Errorf("%w: election %s has no eligible voters", election.ErrUndefinedTurnout, e.ID)
	}

	key, err := t.keys.ReadyKey(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	candidates, err := t.store.ListCandidates(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	ballots, err := t.store.ListBallots(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	choices, err := t.decryptAll(ctx, key.PrivateKeyRef, ballots)
	t.log.PerformanceLogger("tally.decrypt", time.Since(start), err == nil)
	if err != nil {
		t.log.SecurityLogger("count_failed", e.ID, err.Error())
		return nil, fmt.Errorf("count failed: %w", err)
	}

	report := aggregate(e.ID, candidates, choices, eligible)
	report.ComputedAt = now

	if t.cache != nil {
		if err := t.cache.Set(ctx, e.ID, report); err != nil {
			t.log.Warning("result cache write failed", "election_id", e.ID, "error", err)
		}
	}

	t.log.Info("results computed", "election_id", e.ID, "cast", report.CastBallots, "invalid", report.InvalidBallots)
	return report, nil
}

// decryptAll opens every ballot. Entries that do not decode to a choice are left empty.
func (t *Tally) decryptAll(ctx context.Context, ref string, ballots []election.Ballot) ([]string, error) {
	choices := make([]string, len(ballots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i := range ballots {
		i := i
		g.Go(func() error {
			plain, err := t.dec.Decrypt(gctx, ref, ballots[i].EncryptedPayload)
			if err != nil {
				return fmt.Errorf("ballot %s: %w", ballots[i].ID, err)
			}
			var choice election.BallotChoice
			if err := json.Unmarshal(plain, &choice); err == nil {
				choices[i] = choice.CandidateID
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return choices, nil
}

func aggregate(electionID string, candidates []election.Candidate, choices []string, eligible int) *Report {
	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c.ID] = 0
	}

	report := &Report{
		ElectionID:     electionID,
		CastBallots:    len(choices),
		EligibleVoters: eligible,
	}
	for _, id := range choices {
		if _, ok := counts[id]; !ok {
			report.InvalidBallots++
			continue
		}
		counts[id]++
	}

	report.TurnoutPercent = percent(report.CastBallots, eligible)
	for _, c := range candidates {
		r := CandidateResult{
			CandidateID: c.ID,
			Number:      c.Number,
			Name:        c.Name,
			VoteCount:   counts[c.ID],
		}
		if report.CastBallots > 0 {
			share := percent(r.VoteCount, report.CastBallots)
			r.VoteSharePercent = &share
		}
		report.Candidates = append(report.Candidates, r)
	}

	report.Digest = digest(report)

	sort.SliceStable(report.Candidates, func(i, j int) bool {
		a, b := report.Candidates[i], report.Candidates[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.Number < b.Number
	})
	return report
}

func percent(part, whole int) float64 {
	return 100 * float64(part) / float64(whole)
}

// digest hashes the counts in ballot-number order so equal tallies compare equal
func digest(r *Report) string {
	ordered := make([]CandidateResult, len(r.Candidates))
	copy(ordered, r.Candidates)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var b strings.Builder
	fmt.Fprintf(&b, "election=%s\n", r.ElectionID)
	for _, c := range ordered {
		fmt.Fprintf(&b, "%d:%s=%d\n", c.Number, c.CandidateID, c.VoteCount)
	}
	fmt.Fprintf(&b, "cast=%d eligible=%d invalid=%d\n", r.CastBallots, r.EligibleVoters, r.InvalidBallots)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
