package repositories

import (
	"context"
	"database/sql"

	"election-engine/internal/database"
)

// Store groups every repository over one connection or transaction
type Store struct {
	*ElectionRepository
	*VoterRepository
	*CandidateRepository
	*BallotRepository
	*KeyRepository
	*SecretRepository
	*AuditLogRepository

	db *sql.DB
}

// NewStore builds the repositories on db
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(db database.DBTX) *Store {
	return &Store{
		ElectionRepository:  NewElectionRepository(db),
		VoterRepository:     NewVoterRepository(db),
		CandidateRepository: NewCandidateRepository(db),
		BallotRepository:    NewBallotRepository(db),
		KeyRepository:       NewKeyRepository(db),
		SecretRepository:    NewSecretRepository(db),
		AuditLogRepository:  NewAuditLogRepository(db),
	}
}

// DB returns the underlying pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn against a Store bound to a single transaction. A Store that is
// already bound to one runs fn inside it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		return fn(newStore(tx))
	})
}
