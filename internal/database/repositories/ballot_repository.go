package repositories

import (
	"context"
	"fmt"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

type BallotRepository struct {
	db database.DBTX
}

func NewBallotRepository(db database.DBTX) *BallotRepository {
	return &BallotRepository{db: db}
}

// InsertBallotIfAbsent stores b unless its voter already has a ballot, in which
// case it returns election.ErrDuplicateVote. The check and the insert are one statement.
func (r *BallotRepository) InsertBallotIfAbsent(ctx context.Context, b *election.Ballot) error {
	query := `
        INSERT INTO ballots (id, election_id, voter_id, encrypted_payload, cast_location, cast_proof_image_ref, cast_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (voter_id) DO NOTHING
    `
	res, err := r.db.ExecContext(ctx, query, b.ID, b.ElectionID, b.VoterID, encodeBytes(b.EncryptedPayload),
		b.CastLocation, b.CastProofImageRef, b.CastAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return election.ErrDuplicateVote
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return election.ErrDuplicateVote
	}
	return nil
}

// HasBallot reports whether the voter has already cast
func (r *BallotRepository) HasBallot(ctx context.Context, voterID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ballots WHERE voter_id = $1`, voterID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// CountBallots returns the number of ballots cast in an election
func (r *BallotRepository) CountBallots(ctx context.Context, electionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ballots WHERE election_id = $1`, electionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ListBallots returns every ballot of an election in cast order
func (r *BallotRepository) ListBallots(ctx context.Context, electionID string) ([]election.Ballot, error) {
	query := `
        SELECT id, election_id, voter_id, encrypted_payload, cast_location, cast_proof_image_ref, cast_at
        FROM ballots
        WHERE election_id = $1
        ORDER BY cast_at ASC, id
    `
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ballots []election.Ballot
	for rows.Next() {
		var b election.Ballot
		var payload string
		if err := rows.Scan(&b.ID, &b.ElectionID, &b.VoterID, &payload,
			&b.CastLocation, &b.CastProofImageRef, &b.CastAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if b.EncryptedPayload, err = decodeBytes(payload); err != nil {
			return nil, fmt.Errorf("ballot %s: corrupt payload: %w", b.ID, err)
		}
		b.CastAt = b.CastAt.UTC()
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ballots, nil
}
