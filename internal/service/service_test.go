package service_test

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-engine/internal/custody"
	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
	"election-engine/internal/service"
	"election-engine/internal/testutil"
	"election-engine/pkg/logger"
)

const admin = "admin-1"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) set(t *testing.T, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = testutil.Time(t, s)
}

// switchableRand fails while broken is set
type switchableRand struct{ broken atomic.Bool }

func (r *switchableRand) Read(p []byte) (int, error) {
	if r.broken.Load() {
		return 0, errors.New("entropy source unavailable")
	}
	return rand.Read(p)
}

type env struct {
	svc   *service.Service
	store *repositories.Store
	clock *testClock
	rand  *switchableRand
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := testutil.NewStore(t)
	clock := &testClock{}
	clock.set(t, "2023-11-01T00:00:00Z")
	rnd := &switchableRand{}
	cust := custody.New(custody.NaclBox{}, custody.NewMemoryVault(), custody.WithRandom(rnd))

	svc := service.New(service.Options{
		Store:     store,
		Custodian: cust,
		Logger:    logger.NewNop(),
		Clock:     clock,
	})
	return &env{svc: svc, store: store, clock: clock, rand: rnd}
}

func (e *env) time(t *testing.T, s string) time.Time {
	return testutil.Time(t, s)
}

// draft creates an election with two candidates and the given voters
func (e *env) draft(t *testing.T, ch election.Channel, voters ...service.VoterInput) (*election.Election, []*election.Candidate) {
	t.Helper()
	ctx := context.Background()
	in := service.ElectionInput{
		Name:           "Board election",
		Location:       "Main hall",
		Channel:        string(ch),
		VotingOpensAt:  e.time(t, "2024-01-01T00:00:00Z"),
		VotingClosesAt: e.time(t, "2024-01-02T00:00:00Z"),
	}
	if ch == election.ChannelHybrid {
		opens, closes := e.time(t, "2023-12-10T00:00:00Z"), e.time(t, "2023-12-20T00:00:00Z")
		in.RegistrationOpensAt, in.RegistrationClosesAt = &opens, &closes
	}
	el, err := e.svc.CreateElection(ctx, admin, in)
	require.NoError(t, err)

	var candidates []*election.Candidate
	for i, name := range []string{"Ada", "Grace"} {
		c, err := e.svc.AddCandidate(ctx, admin, el.ID, service.CandidateInput{Number: i + 1, Name: name})
		require.NoError(t, err)
		candidates = append(candidates, c)
	}
	if len(voters) > 0 {
		_, err = e.svc.AddEligibleVoters(ctx, admin, el.ID, voters)
		require.NoError(t, err)
	}
	return el, candidates
}

func (e *env) publish(t *testing.T, id string) {
	t.Helper()
	_, err := e.svc.Publish(context.Background(), admin, id, e.time(t, "2023-12-01T00:00:00Z"))
	require.NoError(t, err)
}

func online(users ...string) []service.VoterInput {
	out := make([]service.VoterInput, len(users))
	for i, u := range users {
		out[i] = service.VoterInput{UserID: u, Channel: "ONLINE"}
	}
	return out
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnline, online("u1", "u2", "u3", "u4")...)

	env.clock.set(t, "2023-12-01T00:00:00Z")
	res, err := env.svc.Publish(ctx, admin, el.ID, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, res.Key)
	assert.Equal(t, election.KeyCreated, res.Key.Status)

	env.clock.set(t, "2023-12-31T00:00:00Z")
	list, err := env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, election.PhaseNotOpenedVote, list[0].Phase)
	assert.Nil(t, list[0].RegistrationState)
	require.NotNil(t, list[0].TurnoutPercent)
	assert.Zero(t, *list[0].TurnoutPercent)

	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	env.clock.set(t, "2024-01-01T12:00:00Z")
	receipt, err := env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	require.NoError(t, err)
	assert.Equal(t, el.ID, receipt.ElectionID)
	assert.Len(t, receipt.Fingerprint, 64)

	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[1].ID})
	assert.ErrorIs(t, err, election.ErrDuplicateVote)

	_, err = env.svc.CastBallot(ctx, el.ID, "u2", service.CastInput{CandidateID: candidates[1].ID})
	require.NoError(t, err)
	_, err = env.svc.CastBallot(ctx, el.ID, "u3", service.CastInput{CandidateID: candidates[1].ID})
	require.NoError(t, err)

	list, err = env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsVoted)
	assert.Equal(t, election.PhaseOpenVote, list[0].Phase)
	assert.InDelta(t, 75.0, *list[0].TurnoutPercent, 1e-9)

	env.clock.set(t, "2024-01-03T00:00:00Z")
	_, err = env.svc.CastBallot(ctx, el.ID, "u4", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	_, err = env.svc.GetResults(ctx, el.ID)
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	opens, ends := env.time(t, "2024-01-05T00:00:00Z"), env.time(t, "2024-01-10T00:00:00Z")
	announced, err := env.svc.AnnounceResult(ctx, admin, el.ID, opens, ends)
	require.NoError(t, err)
	assert.True(t, announced.HasResultWindow())

	_, err = env.svc.AnnounceResult(ctx, admin, el.ID, opens, ends)
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	env.clock.set(t, "2024-01-06T00:00:00Z")
	report, err := env.svc.GetResults(ctx, el.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.CastBallots)
	assert.Equal(t, 4, report.EligibleVoters)
	assert.InDelta(t, 75.0, report.TurnoutPercent, 1e-9)
	assert.Equal(t, candidates[1].ID, report.Candidates[0].CandidateID)
	assert.Equal(t, 2, report.Candidates[0].VoteCount)

	voterView, err := env.svc.GetVoterResults(ctx, el.ID, "u4")
	require.NoError(t, err)
	assert.Equal(t, report.Digest, voterView.Digest)

	env.clock.set(t, "2024-01-11T00:00:00Z")
	list, err = env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list, "hidden once the result window has elapsed")

	logs, err := env.svc.ListAuditLogs(ctx, el.ID, "", 100, 0)
	require.NoError(t, err)
	var casts int
	for _, l := range logs {
		if l.Action == database.AuditBallotCast {
			casts++
			assert.NotEqual(t, "u1", l.Actor)
			assert.NotContains(t, l.Details, candidates[0].ID)
		}
	}
	assert.Equal(t, 3, casts)
}

func TestDraftOnlyOperations(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)

	_, err := env.svc.UpdateElection(ctx, admin, el.ID, service.ElectionInput{
		Name: "renamed", Channel: "ONLINE",
		VotingOpensAt: el.VotingOpensAt, VotingClosesAt: el.VotingClosesAt,
	})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	_, err = env.svc.AddCandidate(ctx, admin, el.ID, service.CandidateInput{Number: 3, Name: "Late"})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	_, err = env.svc.AddEligibleVoters(ctx, admin, el.ID, online("u9"))
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	assert.ErrorIs(t, env.svc.DeleteElection(ctx, admin, el.ID), election.ErrInvalidPhase)

	_, err = env.svc.Publish(ctx, admin, el.ID, time.Time{})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)
}

func TestCreateAndUpdateElection(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	_, err := env.svc.CreateElection(ctx, admin, service.ElectionInput{
		Name: "Backwards", Channel: "ONLINE",
		VotingOpensAt:  env.time(t, "2024-01-02T00:00:00Z"),
		VotingClosesAt: env.time(t, "2024-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, election.ErrInvalidSchedule)

	_, err = env.svc.CreateElection(ctx, admin, service.ElectionInput{
		Name: "Postal", Channel: "POSTAL",
		VotingOpensAt:  env.time(t, "2024-01-01T00:00:00Z"),
		VotingClosesAt: env.time(t, "2024-01-02T00:00:00Z"),
	})
	assert.ErrorIs(t, err, election.ErrInvalidInput)

	el, _ := env.draft(t, election.ChannelOnline)
	updated, err := env.svc.UpdateElection(ctx, admin, el.ID, service.ElectionInput{
		Name: "Board election 2024", Channel: "onsite",
		VotingOpensAt: el.VotingOpensAt, VotingClosesAt: el.VotingClosesAt,
	})
	require.NoError(t, err)
	assert.Equal(t, election.ChannelOnsite, updated.Channel)

	page, err := env.svc.ListElections(ctx, repositories.ElectionFilter{Name: "2024"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, election.PhaseDraft, page.Elections[0].Phase)

	require.NoError(t, env.svc.DeleteElection(ctx, admin, el.ID))
	_, err = env.svc.GetElection(ctx, el.ID)
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestUpdateElection_ChannelChangeWithVoters(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnsite, service.VoterInput{UserID: "u1"})

	_, err := env.svc.UpdateElection(ctx, admin, el.ID, service.ElectionInput{
		Name: el.Name, Channel: "ONLINE",
		VotingOpensAt: el.VotingOpensAt, VotingClosesAt: el.VotingClosesAt,
	})
	assert.ErrorIs(t, err, election.ErrInvalidEligibility)

	stored, err := env.svc.GetElection(ctx, el.ID)
	require.NoError(t, err)
	assert.Equal(t, election.ChannelOnsite, stored.Election.Channel)

	opens, closes := env.time(t, "2023-12-10T00:00:00Z"), env.time(t, "2023-12-20T00:00:00Z")
	updated, err := env.svc.UpdateElection(ctx, admin, el.ID, service.ElectionInput{
		Name: el.Name, Channel: "HYBRID",
		RegistrationOpensAt: &opens, RegistrationClosesAt: &closes,
		VotingOpensAt: el.VotingOpensAt, VotingClosesAt: el.VotingClosesAt,
	})
	require.NoError(t, err)
	assert.Equal(t, election.ChannelHybrid, updated.Channel)
}

func TestAddEligibleVoters(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	t.Run("channel must match", func(t *testing.T) {
		el, _ := env.draft(t, election.ChannelOnsite)
		_, err := env.svc.AddEligibleVoters(ctx, admin, el.ID, online("u1"))
		assert.ErrorIs(t, err, election.ErrInvalidEligibility)
	})

	t.Run("defaults", func(t *testing.T) {
		onsite, _ := env.draft(t, election.ChannelOnsite)
		voters, err := env.svc.AddEligibleVoters(ctx, admin, onsite.ID, []service.VoterInput{{UserID: "u1"}})
		require.NoError(t, err)
		assert.Equal(t, election.ChannelOnsite, voters[0].Channel)

		hybrid, _ := env.draft(t, election.ChannelHybrid)
		voters, err = env.svc.AddEligibleVoters(ctx, admin, hybrid.ID, []service.VoterInput{{UserID: "u1"}, {UserID: "u2", Channel: "ONLINE"}})
		require.NoError(t, err)
		assert.Equal(t, election.ChannelOnsite, voters[0].Channel)
		assert.Equal(t, election.ChannelOnline, voters[1].Channel)
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		el, _ := env.draft(t, election.ChannelOnline, online("u1")...)
		_, err := env.svc.AddEligibleVoters(ctx, admin, el.ID, online("u2", "u1"))
		assert.ErrorIs(t, err, election.ErrInvalidInput)

		n, err := env.store.CountEligibleVoters(ctx, el.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = env.svc.AddEligibleVoters(ctx, admin, el.ID, online("u3", "u3"))
		assert.ErrorIs(t, err, election.ErrInvalidInput)
	})
}

func TestAddCandidate_DuplicateNumber(t *testing.T) {
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline)
	_, err := env.svc.AddCandidate(context.Background(), admin, el.ID, service.CandidateInput{Number: 1, Name: "Copy"})
	assert.ErrorIs(t, err, election.ErrInvalidInput)

	list, err := env.svc.ListCandidates(context.Background(), el.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPublish_RequiresCandidates(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, err := env.svc.CreateElection(ctx, admin, service.ElectionInput{
		Name: "Empty", Channel: "ONLINE",
		VotingOpensAt:  env.time(t, "2024-01-01T00:00:00Z"),
		VotingClosesAt: env.time(t, "2024-01-02T00:00:00Z"),
	})
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, admin, el.ID, time.Time{})
	assert.ErrorIs(t, err, election.ErrInvalidInput)
}

func TestPublish_KeyFailureAndReload(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnline, online("u1")...)

	env.rand.broken.Store(true)
	res, err := env.svc.Publish(ctx, admin, el.ID, env.time(t, "2023-12-01T00:00:00Z"))
	assert.ErrorIs(t, err, election.ErrKeyGenerationFailed)
	require.NotNil(t, res)
	assert.NotNil(t, res.Election.PublishAt)
	assert.Equal(t, election.KeyFailed, res.Key.Status)

	detail, err := env.svc.GetElection(ctx, el.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.KeyStatus)
	assert.Equal(t, election.KeyFailed, *detail.KeyStatus)
	assert.Empty(t, detail.PublicKey)

	env.clock.set(t, "2024-01-01T12:00:00Z")
	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrKeyNotReady)

	env.rand.broken.Store(false)
	key, err := env.svc.ReloadKey(ctx, admin, el.ID)
	require.NoError(t, err)
	assert.Equal(t, election.KeyCreated, key.Status)

	_, err = env.svc.ReloadKey(ctx, admin, el.ID)
	assert.ErrorIs(t, err, election.ErrKeyRegenerationNotAllowed)

	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	require.NoError(t, err)

	detail, err = env.svc.GetElection(ctx, el.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.PublicKey)
	assert.Equal(t, 1, detail.CastBallots)
	assert.Equal(t, 1, detail.EligibleVoters)
}

func TestReloadKey_Draft(t *testing.T) {
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline)
	_, err := env.svc.ReloadKey(context.Background(), admin, el.ID)
	assert.ErrorIs(t, err, election.ErrInvalidPhase)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)

	cancelled, err := env.svc.Cancel(ctx, admin, el.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	_, err = env.svc.Cancel(ctx, admin, el.ID)
	require.NoError(t, err)

	env.clock.set(t, "2024-01-01T12:00:00Z")
	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrCancelled)

	list, err := env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCancelled)
	assert.Equal(t, election.PhaseOpenVote, list[0].Phase)

	env.clock.set(t, "2024-01-03T00:00:00Z")
	_, err = env.svc.AnnounceResult(ctx, admin, el.ID, env.time(t, "2024-01-05T00:00:00Z"), env.time(t, "2024-01-10T00:00:00Z"))
	assert.ErrorIs(t, err, election.ErrCancelled)

	_, err = env.svc.Cancel(ctx, admin, "missing")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestAnnounceResult_Validation(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)
	opens, ends := env.time(t, "2024-01-05T00:00:00Z"), env.time(t, "2024-01-10T00:00:00Z")

	env.clock.set(t, "2024-01-01T12:00:00Z")
	_, err := env.svc.AnnounceResult(ctx, admin, el.ID, opens, ends)
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	env.clock.set(t, "2024-01-03T00:00:00Z")
	_, err = env.svc.AnnounceResult(ctx, admin, el.ID, ends, opens)
	assert.ErrorIs(t, err, election.ErrInvalidSchedule)
	_, err = env.svc.AnnounceResult(ctx, admin, el.ID, env.time(t, "2024-01-01T18:00:00Z"), ends)
	assert.ErrorIs(t, err, election.ErrInvalidSchedule)
}

func TestResults_ZeroVoters(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline)
	env.publish(t, el.ID)

	env.clock.set(t, "2024-01-03T00:00:00Z")
	_, err := env.svc.AnnounceResult(ctx, admin, el.ID, env.time(t, "2024-01-05T00:00:00Z"), env.time(t, "2024-01-10T00:00:00Z"))
	require.NoError(t, err)

	env.clock.set(t, "2024-01-06T00:00:00Z")
	_, err = env.svc.GetResults(ctx, el.ID)
	assert.ErrorIs(t, err, election.ErrUndefinedTurnout)
}

func TestOnsiteGracePeriod(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnsite, service.VoterInput{UserID: "u1"})
	env.publish(t, el.ID)

	env.clock.set(t, "2024-01-08T00:00:00Z") // D+6d
	list, err := env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	env.clock.set(t, "2024-01-10T00:00:00Z") // D+8d
	list, err = env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = env.svc.GetVoterElection(ctx, el.ID, "u1")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestOnsiteCastNeedsProof(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnsite, service.VoterInput{UserID: "u1"})
	env.publish(t, el.ID)
	env.clock.set(t, "2024-01-01T12:00:00Z")

	_, err := env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrInvalidEligibility)

	_, err = env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{
		CandidateID: candidates[0].ID, Location: "Hall A", ImageRef: "proofs/u1.jpg",
	})
	require.NoError(t, err)
}

func TestHybridRegistration(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelHybrid, service.VoterInput{UserID: "u1"})
	env.publish(t, el.ID)

	env.clock.set(t, "2023-12-05T00:00:00Z")
	list, err := env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list, "hidden until registration opens")
	_, err = env.svc.Register(ctx, el.ID, "u1", "ONLINE")
	assert.ErrorIs(t, err, election.ErrNotFound)

	env.clock.set(t, "2023-12-15T00:00:00Z")
	list, err = env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].RegistrationState)
	assert.Equal(t, election.ChannelOnsite, *list[0].RegistrationState)

	_, err = env.svc.Register(ctx, el.ID, "u1", "HYBRID")
	assert.ErrorIs(t, err, election.ErrInvalidEligibility)

	v, err := env.svc.Register(ctx, el.ID, "u1", "online")
	require.NoError(t, err)
	assert.Equal(t, election.ChannelOnline, v.Channel)

	list, err = env.svc.ListVisibleElections(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, election.ChannelOnline, *list[0].RegistrationState)

	env.clock.set(t, "2023-12-21T00:00:00Z")
	_, err = env.svc.Register(ctx, el.ID, "u1", "ONSITE")
	assert.ErrorIs(t, err, election.ErrInvalidPhase)
}

func TestRegister_NotHybrid(t *testing.T) {
	env := newEnv(t)
	el, _ := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)
	env.clock.set(t, "2023-12-15T00:00:00Z")

	_, err := env.svc.Register(context.Background(), el.ID, "u1", "ONSITE")
	assert.ErrorIs(t, err, election.ErrInvalidEligibility)
}

func TestCastBallot_UnknownVoter(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)
	env.clock.set(t, "2024-01-01T12:00:00Z")

	_, err := env.svc.CastBallot(ctx, el.ID, "stranger", service.CastInput{CandidateID: candidates[0].ID})
	assert.ErrorIs(t, err, election.ErrNotFound)
	_, err = env.svc.GetVoterElection(ctx, el.ID, "stranger")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestCastBallot_Concurrent(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	el, candidates := env.draft(t, election.ChannelOnline, online("u1")...)
	env.publish(t, el.ID)
	env.clock.set(t, "2024-01-01T12:00:00Z")

	const attempts = 12
	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.CastBallot(ctx, el.ID, "u1", service.CastInput{CandidateID: candidates[i%2].ID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, election.ErrDuplicateVote):
				dup.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, attempts-1, dup.Load())
}
