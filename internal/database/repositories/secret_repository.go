package repositories

import (
	"context"
	"fmt"
	"time"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

// SecretRepository persists sealed private keys for custody.SealedVault
type SecretRepository struct {
	db database.DBTX
}

func NewSecretRepository(db database.DBTX) *SecretRepository {
	return &SecretRepository{db: db}
}

func (r *SecretRepository) PutSecret(ctx context.Context, ref string, sealed []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vault_secrets (ref, sealed, created_at) VALUES ($1, $2, $3)`,
		ref, encodeBytes(sealed), time.Now().UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: secret already stored", election.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SecretRepository) GetSecret(ctx context.Context, ref string) ([]byte, error) {
	var sealed string
	err := r.db.QueryRowContext(ctx, `SELECT sealed FROM vault_secrets WHERE ref = $1`, ref).Scan(&sealed)
	if err != nil {
		return nil, notFound(err, "vault secret")
	}
	return decodeBytes(sealed)
}
