// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/election"
)

// NewDB opens a private in-memory sqlite database with the schema applied
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := database.SQLiteDSN("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serialises writers
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

// NewStore returns a Store over NewDB
func NewStore(t testing.TB) *repositories.Store {
	t.Helper()
	return repositories.NewStore(NewDB(t))
}

// Time parses an RFC 3339 timestamp or fails the test
func Time(t testing.TB, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

// Ptr returns a pointer to ts
func Ptr(ts time.Time) *time.Time {
	return &ts
}

// Election returns a valid draft election of the given channel. Voting runs
// through 2024-01-01 UTC.
func Election(t testing.TB, ch election.Channel) *election.Election {
	t.Helper()
	created := Time(t, "2023-11-01T00:00:00Z")
	e := &election.Election{
		ID:             uuid.NewString(),
		Name:           "Board election",
		Description:    "Annual board seat",
		Location:       "Main hall",
		Channel:        ch,
		VotingOpensAt:  Time(t, "2024-01-01T00:00:00Z"),
		VotingClosesAt: Time(t, "2024-01-01T23:59:59Z"),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if ch == election.ChannelHybrid {
		e.RegistrationOpensAt = Ptr(Time(t, "2023-12-10T00:00:00Z"))
		e.RegistrationClosesAt = Ptr(Time(t, "2023-12-20T00:00:00Z"))
	}
	return e
}

// SeedElection stores an Election fixture and returns it
func SeedElection(t testing.TB, s *repositories.Store, ch election.Channel) *election.Election {
	t.Helper()
	e := Election(t, ch)
	require.NoError(t, s.CreateElection(context.Background(), e))
	return e
}

// SeedCandidate stores a candidate with the given ballot number
func SeedCandidate(t testing.TB, s *repositories.Store, electionID string, number int, name string) *election.Candidate {
	t.Helper()
	c := &election.Candidate{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		Number:     number,
		Name:       name,
		CreatedAt:  Time(t, "2023-11-02T00:00:00Z"),
	}
	require.NoError(t, s.AddCandidate(context.Background(), c))
	return c
}

// SeedVoter enrols userID in the election
func SeedVoter(t testing.TB, s *repositories.Store, electionID, userID string, ch election.Channel) *election.EligibleVoter {
	t.Helper()
	created := Time(t, "2023-11-02T00:00:00Z")
	v := &election.EligibleVoter{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		UserID:     userID,
		Channel:    ch,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, s.AddEligibleVoter(context.Background(), v))
	return v
}
