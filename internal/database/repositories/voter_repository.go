package repositories

import (
	"context"
	"fmt"
	"time"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

type VoterRepository struct {
	db database.DBTX
}

func NewVoterRepository(db database.DBTX) *VoterRepository {
	return &VoterRepository{db: db}
}

type voterRow struct {
	v       election.EligibleVoter
	channel string
}

func (r *voterRow) dest() []any {
	return []any{&r.v.ID, &r.v.ElectionID, &r.v.UserID, &r.channel, &r.v.CreatedAt, &r.v.UpdatedAt}
}

func (r *voterRow) voter() *election.EligibleVoter {
	v := r.v
	v.Channel = election.Channel(r.channel)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v
}

func scanVoter(row scanner) (*election.EligibleVoter, error) {
	var r voterRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.voter(), nil
}

// AddEligibleVoter inserts one voter. A user already enrolled in the election is rejected.
func (r *VoterRepository) AddEligibleVoter(ctx context.Context, v *election.EligibleVoter) error {
	query := `
        INSERT INTO eligible_voters (id, election_id, user_id, channel, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.ExecContext(ctx, query, v.ID, v.ElectionID, v.UserID, string(v.Channel),
		v.CreatedAt.UTC(), v.UpdatedAt.UTC())
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return fmt.Errorf("%w: user %s is already an eligible voter", election.ErrInvalidInput, v.UserID)
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("election %s: %w", v.ElectionID, election.ErrNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetEligibleVoter retrieves the voter record of userID in electionID
func (r *VoterRepository) GetEligibleVoter(ctx context.Context, electionID, userID string) (*election.EligibleVoter, error) {
	query := `
        SELECT id, election_id, user_id, channel, created_at, updated_at
        FROM eligible_voters
        WHERE election_id = $1 AND user_id = $2
    `
	v, err := scanVoter(r.db.QueryRowContext(ctx, query, electionID, userID))
	if err != nil {
		return nil, notFound(err, "voter")
	}
	return v, nil
}

// ListEligibleVoters pages through the voters of an election
func (r *VoterRepository) ListEligibleVoters(ctx context.Context, electionID string, limit, offset int) ([]election.EligibleVoter, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
        SELECT id, election_id, user_id, channel, created_at, updated_at
        FROM eligible_voters
        WHERE election_id = $1
        ORDER BY created_at ASC, id
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.QueryContext(ctx, query, electionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []election.EligibleVoter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// CountEligibleVoters returns the size of the electorate
func (r *VoterRepository) CountEligibleVoters(ctx context.Context, electionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eligible_voters WHERE election_id = $1`, electionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// UpdateVoterChannel changes the channel a voter takes part through
func (r *VoterRepository) UpdateVoterChannel(ctx context.Context, voterID string, channel election.Channel, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE eligible_voters SET channel = $1, updated_at = $2 WHERE id = $3`,
		string(channel), at.UTC(), voterID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("voter %s: %w", voterID, election.ErrNotFound)
	}
	return nil
}

// ListVoterElections returns every enrolment of userID with its election
func (r *VoterRepository) ListVoterElections(ctx context.Context, userID string) ([]election.VoterElection, error) {
	query := `
        SELECT v.id, v.election_id, v.user_id, v.channel, v.created_at, v.updated_at,
               e.id, e.name, e.description, e.location, e.channel, e.publish_at,
               e.registration_opens_at, e.registration_closes_at, e.voting_opens_at, e.voting_closes_at,
               e.result_announce_opens_at, e.result_announce_ends_at, e.is_cancelled, e.created_at, e.updated_at
        FROM eligible_voters v
        JOIN elections e ON e.id = v.election_id
        WHERE v.user_id = $1
        ORDER BY e.voting_opens_at DESC, e.id
    `
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []election.VoterElection
	for rows.Next() {
		row, err := scanVoterElection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func scanVoterElection(row scanner) (*election.VoterElection, error) {
	var vr voterRow
	var er electionRow
	if err := row.Scan(append(vr.dest(), er.dest()...)...); err != nil {
		return nil, err
	}
	return &election.VoterElection{Voter: *vr.voter(), Election: *er.election()}, nil
}
