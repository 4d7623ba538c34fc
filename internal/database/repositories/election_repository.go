package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"election-engine/internal/database"
	"election-engine/internal/election"
)

type ElectionRepository struct {
	db database.DBTX
}

func NewElectionRepository(db database.DBTX) *ElectionRepository {
	return &ElectionRepository{db: db}
}

// ElectionFilter narrows ListElections. Zero values do not filter.
type ElectionFilter struct {
	Name        string
	Channel     election.Channel
	IsCancelled *bool
	Limit       int
	Offset      int
}

const electionColumns = `id, name, description, location, channel, publish_at,
               registration_opens_at, registration_closes_at, voting_opens_at, voting_closes_at,
               result_announce_opens_at, result_announce_ends_at, is_cancelled, created_at, updated_at`

// electionRow holds the scan destinations of one elections row
type electionRow struct {
	e                                                       election.Election
	channel                                                 string
	publishAt, regOpens, regCloses, resultOpens, resultEnds sql.NullTime
}

func (r *electionRow) dest() []any {
	return []any{
		&r.e.ID, &r.e.Name, &r.e.Description, &r.e.Location, &r.channel, &r.publishAt,
		&r.regOpens, &r.regCloses, &r.e.VotingOpensAt, &r.e.VotingClosesAt,
		&r.resultOpens, &r.resultEnds, &r.e.IsCancelled, &r.e.CreatedAt, &r.e.UpdatedAt,
	}
}

func (r *electionRow) election() *election.Election {
	e := r.e
	e.Channel = election.Channel(r.channel)
	e.PublishAt = timePtr(r.publishAt)
	e.RegistrationOpensAt = timePtr(r.regOpens)
	e.RegistrationClosesAt = timePtr(r.regCloses)
	e.ResultAnnounceOpensAt = timePtr(r.resultOpens)
	e.ResultAnnounceEndsAt = timePtr(r.resultEnds)
	e.VotingOpensAt = e.VotingOpensAt.UTC()
	e.VotingClosesAt = e.VotingClosesAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e
}

func scanElection(row scanner) (*election.Election, error) {
	var r electionRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.election(), nil
}

// CreateElection creates a new election record
func (r *ElectionRepository) CreateElection(ctx context.Context, e *election.Election) error {
	query := `
        INSERT INTO elections (id, name, description, location, channel, publish_at,
                               registration_opens_at, registration_closes_at, voting_opens_at, voting_closes_at,
                               result_announce_opens_at, result_announce_ends_at, is_cancelled, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `
	_, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.Description, e.Location, string(e.Channel),
		nullableTime(e.PublishAt), nullableTime(e.RegistrationOpensAt), nullableTime(e.RegistrationClosesAt),
		e.VotingOpensAt.UTC(), e.VotingClosesAt.UTC(),
		nullableTime(e.ResultAnnounceOpensAt), nullableTime(e.ResultAnnounceEndsAt),
		e.IsCancelled, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: election %s already exists", election.ErrConflict, e.ID)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetElection retrieves an election by ID
func (r *ElectionRepository) GetElection(ctx context.Context, id string) (*election.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`

	e, err := scanElection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "election "+id)
	}
	return e, nil
}

// ListElections retrieves elections matching filter, newest first, together with the total match count
func (r *ElectionRepository) ListElections(ctx context.Context, filter ElectionFilter) ([]election.Election, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Name != "" {
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
		where += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args))
	}
	if filter.Channel != "" {
		args = append(args, string(filter.Channel))
		where += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	if filter.IsCancelled != nil {
		args = append(args, *filter.IsCancelled)
		where += fmt.Sprintf(" AND is_cancelled = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM elections"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := `SELECT ` + electionColumns + ` FROM elections` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var elections []election.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		elections = append(elections, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return elections, total, nil
}

// UpdateDraft rewrites the editable fields of an unpublished election
func (r *ElectionRepository) UpdateDraft(ctx context.Context, e *election.Election) error {
	query := `
        UPDATE elections
        SET name = $1, description = $2, location = $3, channel = $4,
            registration_opens_at = $5, registration_closes_at = $6,
            voting_opens_at = $7, voting_closes_at = $8, updated_at = $9
        WHERE id = $10 AND publish_at IS NULL
    `
	res, err := r.db.ExecContext(ctx, query, e.Name, e.Description, e.Location, string(e.Channel),
		nullableTime(e.RegistrationOpensAt), nullableTime(e.RegistrationClosesAt),
		e.VotingOpensAt.UTC(), e.VotingClosesAt.UTC(), e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.expectOne(ctx, res, e.ID, "election is no longer a draft")
}

// PublishElection sets publish_at once. A second call fails with ErrInvalidPhase.
func (r *ElectionRepository) PublishElection(ctx context.Context, id string, publishAt time.Time) error {
	query := `UPDATE elections SET publish_at = $1, updated_at = $2 WHERE id = $3 AND publish_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, publishAt.UTC(), publishAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.expectOne(ctx, res, id, "election already published")
}

// CancelElection sets the cancelled flag. Cancelling twice is not an error.
func (r *ElectionRepository) CancelElection(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE elections SET is_cancelled = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, true, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("election %s: %w", id, election.ErrNotFound)
	}
	return nil
}

// SetResultWindow stores the announcement window once. A second call fails with ErrInvalidPhase.
func (r *ElectionRepository) SetResultWindow(ctx context.Context, id string, opensAt, endsAt, at time.Time) error {
	query := `
        UPDATE elections
        SET result_announce_opens_at = $1, result_announce_ends_at = $2, updated_at = $3
        WHERE id = $4 AND result_announce_opens_at IS NULL
    `
	res, err := r.db.ExecContext(ctx, query, opensAt.UTC(), endsAt.UTC(), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.expectOne(ctx, res, id, "result window already set")
}

// DeleteElectionCascade deletes an unpublished election and everything it owns.
// Run it inside a transaction.
func (r *ElectionRepository) DeleteElectionCascade(ctx context.Context, id string) error {
	e, err := r.GetElection(ctx, id)
	if err != nil {
		return err
	}
	if e.PublishAt != nil {
		return fmt.Errorf("%w: only draft elections can be deleted", election.ErrInvalidPhase)
	}

	for _, stmt := range []string{
		`DELETE FROM ballots WHERE election_id = $1`,
		`DELETE FROM eligible_voters WHERE election_id = $1`,
		`DELETE FROM candidates WHERE election_id = $1`,
		`DELETE FROM election_keys WHERE election_id = $1`,
		`DELETE FROM elections WHERE id = $1`,
	} {
		if _, err := r.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// expectOne turns a zero-row conditional update into NotFound or InvalidPhase
func (r *ElectionRepository) expectOne(ctx context.Context, res sql.Result, id, reason string) error {
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetElection(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", election.ErrInvalidPhase, reason)
}
