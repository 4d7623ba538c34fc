package repositories

import (
	"context"
	"fmt"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

type CandidateRepository struct {
	db database.DBTX
}

func NewCandidateRepository(db database.DBTX) *CandidateRepository {
	return &CandidateRepository{db: db}
}

const candidateColumns = `id, election_id, number, name, description, profile_image_ref, created_at`

func scanCandidate(row scanner) (*election.Candidate, error) {
	var c election.Candidate
	if err := row.Scan(&c.ID, &c.ElectionID, &c.Number, &c.Name, &c.Description,
		&c.ProfileImageRef, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// AddCandidate inserts a candidate. Ballot numbers are unique per election.
func (r *CandidateRepository) AddCandidate(ctx context.Context, c *election.Candidate) error {
	query := `
        INSERT INTO candidates (` + candidateColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.ExecContext(ctx, query, c.ID, c.ElectionID, c.Number, c.Name, c.Description,
		c.ProfileImageRef, c.CreatedAt.UTC())
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return fmt.Errorf("%w: candidate number %d is taken", election.ErrInvalidInput, c.Number)
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("election %s: %w", c.ElectionID, election.ErrNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetCandidate retrieves a candidate of the given election
func (r *CandidateRepository) GetCandidate(ctx context.Context, electionID, candidateID string) (*election.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE election_id = $1 AND id = $2`
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, electionID, candidateID))
	if err != nil {
		return nil, notFound(err, "candidate "+candidateID)
	}
	return c, nil
}

// ListCandidates returns the ballot of an election in number order
func (r *CandidateRepository) ListCandidates(ctx context.Context, electionID string) ([]election.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE election_id = $1 ORDER BY number ASC`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var candidates []election.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return candidates, nil
}
