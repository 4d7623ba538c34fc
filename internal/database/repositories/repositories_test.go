package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
	"election-engine/internal/testutil"
)

func TestElectionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelHybrid)

	got, err := s.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, election.ChannelHybrid, got.Channel)
	assert.Nil(t, got.PublishAt)
	require.NotNil(t, got.RegistrationOpensAt)
	assert.True(t, e.RegistrationOpensAt.Equal(*got.RegistrationOpensAt))
	assert.True(t, e.VotingClosesAt.Equal(got.VotingClosesAt))
	assert.False(t, got.IsCancelled)

	_, err = s.GetElection(ctx, uuid.NewString())
	assert.ErrorIs(t, err, election.ErrNotFound)

	err = s.CreateElection(ctx, e)
	assert.ErrorIs(t, err, election.ErrConflict)
}

func TestElectionRepository_List(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	a := testutil.SeedElection(t, s, election.ChannelOnline)
	b := testutil.Election(t, election.ChannelOnsite)
	b.Name = "Treasurer vote"
	require.NoError(t, s.CreateElection(ctx, b))
	require.NoError(t, s.CancelElection(ctx, a.ID, a.CreatedAt))

	all, total, err := s.ListElections(ctx, repositories.ElectionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	byName, total, err := s.ListElections(ctx, repositories.ElectionFilter{Name: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, byName[0].ID)

	cancelled := true
	got, _, err := s.ListElections(ctx, repositories.ElectionFilter{IsCancelled: &cancelled})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	online, _, err := s.ListElections(ctx, repositories.ElectionFilter{Channel: election.ChannelOnsite})
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, b.ID, online[0].ID)

	paged, total, err := s.ListElections(ctx, repositories.ElectionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, paged, 1)
}

func TestElectionRepository_PublishOnce(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	at := testutil.Time(t, "2023-12-01T00:00:00Z")

	require.NoError(t, s.PublishElection(ctx, e.ID, at))
	err := s.PublishElection(ctx, e.ID, at)
	assert.ErrorIs(t, err, election.ErrInvalidPhase)

	err = s.PublishElection(ctx, uuid.NewString(), at)
	assert.ErrorIs(t, err, election.ErrNotFound)

	got, err := s.GetElection(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PublishAt)
	assert.True(t, at.Equal(*got.PublishAt))

	e.Name = "renamed"
	assert.ErrorIs(t, s.UpdateDraft(ctx, e), election.ErrInvalidPhase)
}

func TestElectionRepository_ResultWindowOnce(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	opens := testutil.Time(t, "2024-01-05T00:00:00Z")
	ends := testutil.Time(t, "2024-01-10T00:00:00Z")

	require.NoError(t, s.SetResultWindow(ctx, e.ID, opens, ends, opens))
	assert.ErrorIs(t, s.SetResultWindow(ctx, e.ID, opens, ends, opens), election.ErrInvalidPhase)

	got, err := s.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.HasResultWindow())
	assert.True(t, ends.Equal(*got.ResultAnnounceEndsAt))
}

func TestElectionRepository_DeleteCascade(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	testutil.SeedCandidate(t, s, e.ID, 1, "Ada")
	testutil.SeedVoter(t, s, e.ID, "user-1", election.ChannelOnline)

	err := s.WithTx(ctx, func(tx *repositories.Store) error {
		return tx.DeleteElectionCascade(ctx, e.ID)
	})
	require.NoError(t, err)

	_, err = s.GetElection(ctx, e.ID)
	assert.ErrorIs(t, err, election.ErrNotFound)
	n, err := s.CountEligibleVoters(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	published := testutil.SeedElection(t, s, election.ChannelOnline)
	require.NoError(t, s.PublishElection(ctx, published.ID, published.CreatedAt))
	err = s.WithTx(ctx, func(tx *repositories.Store) error {
		return tx.DeleteElectionCascade(ctx, published.ID)
	})
	assert.ErrorIs(t, err, election.ErrInvalidPhase)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.Election(t, election.ChannelOnline)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *repositories.Store) error {
		require.NoError(t, tx.CreateElection(ctx, e))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetElection(ctx, e.ID)
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestStore_NestedWithTx(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	boom := errors.New("boom")

	inner := testutil.Election(t, election.ChannelOnline)
	err := s.WithTx(ctx, func(tx *repositories.Store) error {
		require.NoError(t, tx.WithTx(ctx, func(nested *repositories.Store) error {
			return nested.CreateElection(ctx, inner)
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = s.GetElection(ctx, inner.ID)
	assert.ErrorIs(t, err, election.ErrNotFound, "nested work belongs to the outer transaction")

	committed := testutil.Election(t, election.ChannelOnline)
	err = s.WithTx(ctx, func(tx *repositories.Store) error {
		return tx.WithTx(ctx, func(nested *repositories.Store) error {
			return nested.CreateElection(ctx, committed)
		})
	})
	require.NoError(t, err)
	_, err = s.GetElection(ctx, committed.ID)
	assert.NoError(t, err)
}

func TestVoterRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelHybrid)
	v := testutil.SeedVoter(t, s, e.ID, "user-1", election.ChannelHybrid)
	testutil.SeedVoter(t, s, e.ID, "user-2", election.ChannelHybrid)

	t.Run("duplicate enrolment", func(t *testing.T) {
		dup := *v
		dup.ID = uuid.NewString()
		assert.ErrorIs(t, s.AddEligibleVoter(ctx, &dup), election.ErrInvalidInput)
	})

	t.Run("unknown election", func(t *testing.T) {
		orphan := *v
		orphan.ID = uuid.NewString()
		orphan.ElectionID = uuid.NewString()
		assert.ErrorIs(t, s.AddEligibleVoter(ctx, &orphan), election.ErrNotFound)
	})

	t.Run("get and count", func(t *testing.T) {
		got, err := s.GetEligibleVoter(ctx, e.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)

		_, err = s.GetEligibleVoter(ctx, e.ID, "nobody")
		assert.ErrorIs(t, err, election.ErrNotFound)

		n, err := s.CountEligibleVoters(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		list, err := s.ListEligibleVoters(ctx, e.ID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("update channel", func(t *testing.T) {
		require.NoError(t, s.UpdateVoterChannel(ctx, v.ID, election.ChannelOnline, e.CreatedAt))
		got, err := s.GetEligibleVoter(ctx, e.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, election.ChannelOnline, got.Channel)

		assert.ErrorIs(t, s.UpdateVoterChannel(ctx, uuid.NewString(), election.ChannelOnline, e.CreatedAt), election.ErrNotFound)
	})

	t.Run("voter elections", func(t *testing.T) {
		other := testutil.SeedElection(t, s, election.ChannelOnsite)
		testutil.SeedVoter(t, s, other.ID, "user-1", election.ChannelOnsite)

		rows, err := s.ListVoterElections(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		ids := []string{rows[0].Election.ID, rows[1].Election.ID}
		assert.ElementsMatch(t, []string{e.ID, other.ID}, ids)
		for _, r := range rows {
			assert.Equal(t, r.Election.ID, r.Voter.ElectionID)
			assert.Equal(t, "user-1", r.Voter.UserID)
		}
	})
}

func TestCandidateRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	second := testutil.SeedCandidate(t, s, e.ID, 2, "Grace")
	first := testutil.SeedCandidate(t, s, e.ID, 1, "Ada")

	dup := *first
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.AddCandidate(ctx, &dup), election.ErrInvalidInput)

	list, err := s.ListCandidates(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	got, err := s.GetCandidate(ctx, e.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)

	other := testutil.SeedElection(t, s, election.ChannelOnline)
	_, err = s.GetCandidate(ctx, other.ID, second.ID)
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestBallotRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	v := testutil.SeedVoter(t, s, e.ID, "user-1", election.ChannelOnline)

	b := &election.Ballot{
		ID:               uuid.NewString(),
		ElectionID:       e.ID,
		VoterID:          v.ID,
		EncryptedPayload: []byte{0x00, 0xff, 0x10},
		CastAt:           e.VotingOpensAt,
	}
	require.NoError(t, s.InsertBallotIfAbsent(ctx, b))

	again := *b
	again.ID = uuid.NewString()
	assert.ErrorIs(t, s.InsertBallotIfAbsent(ctx, &again), election.ErrDuplicateVote)

	has, err := s.HasBallot(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := s.CountBallots(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ballots, err := s.ListBallots(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	assert.Equal(t, b.EncryptedPayload, ballots[0].EncryptedPayload)
}

func TestBallotRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)
	v := testutil.SeedVoter(t, s, e.ID, "user-1", election.ChannelOnline)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.InsertBallotIfAbsent(ctx, &election.Ballot{
				ID:               uuid.NewString(),
				ElectionID:       e.ID,
				VoterID:          v.ID,
				EncryptedPayload: []byte{byte(i)},
				CastAt:           e.VotingOpensAt,
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, election.ErrDuplicateVote)
	}
	assert.Equal(t, 1, ok)
}

func TestKeyRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e := testutil.SeedElection(t, s, election.ChannelOnline)

	k := &election.ElectionKey{
		ElectionID: e.ID,
		Scheme:     "naclbox",
		Status:     election.KeyPending,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.CreatedAt,
	}
	require.NoError(t, s.CreateKey(ctx, k))
	assert.ErrorIs(t, s.CreateKey(ctx, k), election.ErrConflict)

	created := *k
	created.Status = election.KeyCreated
	created.PublicKey = []byte("public-key-bytes")
	created.PrivateKeyRef = "key_ref"
	require.NoError(t, s.TransitionKey(ctx, &created, election.KeyPending))

	// a second PENDING transition lost the race
	failed := *k
	failed.Status = election.KeyFailed
	assert.ErrorIs(t, s.TransitionKey(ctx, &failed, election.KeyPending), election.ErrConflict)

	got, err := s.GetKey(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, election.KeyCreated, got.Status)
	assert.Equal(t, []byte("public-key-bytes"), got.PublicKey)
	assert.Equal(t, "key_ref", got.PrivateKeyRef)

	_, err = s.GetKey(ctx, uuid.NewString())
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestSecretRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)

	require.NoError(t, s.PutSecret(ctx, "key_1", []byte{1, 2, 3}))
	assert.ErrorIs(t, s.PutSecret(ctx, "key_1", []byte{4}), election.ErrConflict)

	got, err := s.GetSecret(ctx, "key_1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, err = s.GetSecret(ctx, "missing")
	assert.ErrorIs(t, err, election.ErrNotFound)
}

func TestAuditLogRepository(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	base := testutil.Time(t, "2024-01-01T00:00:00Z")

	for i, action := range []string{database.AuditElectionCreated, database.AuditElectionPublished, database.AuditElectionCreated} {
		electionID := "e1"
		if i == 2 {
			electionID = "e2"
		}
		require.NoError(t, s.InsertAuditLog(ctx, &database.AuditLog{
			Action:     action,
			Actor:      "admin",
			ElectionID: electionID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListAuditLogs(ctx, "", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e2", all[0].ElectionID)
	assert.NotEmpty(t, all[0].ID)

	e1, err := s.ListAuditLogs(ctx, "e1", "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, e1, 2)

	created, err := s.ListAuditLogs(ctx, "", database.AuditElectionCreated, 10, 0)
	require.NoError(t, err)
	assert.Len(t, created, 2)
}
