package repositories

import (
	"context"
	"fmt"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

type KeyRepository struct {
	db database.DBTX
}

func NewKeyRepository(db database.DBTX) *KeyRepository {
	return &KeyRepository{db: db}
}

// CreateKey inserts the key record of an election. An election has at most one.
func (r *KeyRepository) CreateKey(ctx context.Context, k *election.ElectionKey) error {
	query := `
        INSERT INTO election_keys (election_id, scheme, public_key, private_key_ref, status, failure_reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.ExecContext(ctx, query, k.ElectionID, k.Scheme, encodeBytes(k.PublicKey), k.PrivateKeyRef,
		string(k.Status), k.FailureReason, k.CreatedAt.UTC(), k.UpdatedAt.UTC())
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return fmt.Errorf("%w: election %s already has a key", election.ErrConflict, k.ElectionID)
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("election %s: %w", k.ElectionID, election.ErrNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetKey retrieves the key record of an election
func (r *KeyRepository) GetKey(ctx context.Context, electionID string) (*election.ElectionKey, error) {
	query := `
        SELECT election_id, scheme, public_key, private_key_ref, status, failure_reason, created_at, updated_at
        FROM election_keys
        WHERE election_id = $1
    `
	var k election.ElectionKey
	var pub, status string
	err := r.db.QueryRowContext(ctx, query, electionID).Scan(&k.ElectionID, &k.Scheme, &pub,
		&k.PrivateKeyRef, &status, &k.FailureReason, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "key of election "+electionID)
	}
	if k.PublicKey, err = decodeBytes(pub); err != nil {
		return nil, fmt.Errorf("key of election %s: corrupt public key: %w", electionID, err)
	}
	k.Status = election.KeyStatus(status)
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return &k, nil
}

// TransitionKey overwrites the key record only while its status is still from.
// A concurrent transition makes it fail with election.ErrConflict.
func (r *KeyRepository) TransitionKey(ctx context.Context, k *election.ElectionKey, from election.KeyStatus) error {
	query := `
        UPDATE election_keys
        SET scheme = $1, public_key = $2, private_key_ref = $3, status = $4, failure_reason = $5, updated_at = $6
        WHERE election_id = $7 AND status = $8
    `
	res, err := r.db.ExecContext(ctx, query, k.Scheme, encodeBytes(k.PublicKey), k.PrivateKeyRef,
		string(k.Status), k.FailureReason, k.UpdatedAt.UTC(), k.ElectionID, string(from))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: key of election %s is no longer %s", election.ErrConflict, k.ElectionID, from)
	}
	return nil
}
