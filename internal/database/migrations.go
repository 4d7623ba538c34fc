package database

import (
	"context"
	"database/sql"
	"fmt"
)

// RunMigrations executes database migrations. The DDL is shared by sqlite and postgres:
// ids are uuids in VARCHAR, binary values are base64 TEXT and times are UTC TIMESTAMP.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		createElectionsTable,
		createEligibleVotersTable,
		createCandidatesTable,
		createElectionKeysTable,
		createBallotsTable,
		createVaultSecretsTable,
		createAuditLogsTable,
		createVotersUserIndex,
		createBallotsElectionIndex,
		createAuditElectionIndex,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const createElectionsTable = `
CREATE TABLE IF NOT EXISTS elections (
    id VARCHAR(36) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location VARCHAR(255) NOT NULL DEFAULT '',
    channel VARCHAR(10) NOT NULL,
    publish_at TIMESTAMP NULL,
    registration_opens_at TIMESTAMP NULL,
    registration_closes_at TIMESTAMP NULL,
    voting_opens_at TIMESTAMP NOT NULL,
    voting_closes_at TIMESTAMP NOT NULL,
    result_announce_opens_at TIMESTAMP NULL,
    result_announce_ends_at TIMESTAMP NULL,
    is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

const createEligibleVotersTable = `
CREATE TABLE IF NOT EXISTS eligible_voters (
    id VARCHAR(36) PRIMARY KEY,
    election_id VARCHAR(36) NOT NULL REFERENCES elections(id),
    user_id VARCHAR(255) NOT NULL,
    channel VARCHAR(10) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, user_id)
)`

const createCandidatesTable = `
CREATE TABLE IF NOT EXISTS candidates (
    id VARCHAR(36) PRIMARY KEY,
    election_id VARCHAR(36) NOT NULL REFERENCES elections(id),
    number INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    profile_image_ref VARCHAR(512) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, number)
)`

const createElectionKeysTable = `
CREATE TABLE IF NOT EXISTS election_keys (
    election_id VARCHAR(36) PRIMARY KEY REFERENCES elections(id),
    scheme VARCHAR(20) NOT NULL,
    public_key TEXT NOT NULL DEFAULT '',
    private_key_ref VARCHAR(64) NOT NULL DEFAULT '',
    status VARCHAR(10) NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

// the UNIQUE voter_id is the at-most-one-ballot guard
const createBallotsTable = `
CREATE TABLE IF NOT EXISTS ballots (
    id VARCHAR(36) PRIMARY KEY,
    election_id VARCHAR(36) NOT NULL REFERENCES elections(id),
    voter_id VARCHAR(36) NOT NULL UNIQUE REFERENCES eligible_voters(id),
    encrypted_payload TEXT NOT NULL,
    cast_location VARCHAR(255) NOT NULL DEFAULT '',
    cast_proof_image_ref VARCHAR(512) NOT NULL DEFAULT '',
    cast_at TIMESTAMP NOT NULL
)`

const createVaultSecretsTable = `
CREATE TABLE IF NOT EXISTS vault_secrets (
    ref VARCHAR(64) PRIMARY KEY,
    sealed TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

const createAuditLogsTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
    id VARCHAR(36) PRIMARY KEY,
    action VARCHAR(100) NOT NULL,
    actor VARCHAR(255) NOT NULL DEFAULT '',
    election_id VARCHAR(36) NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`

const createVotersUserIndex = `CREATE INDEX IF NOT EXISTS idx_eligible_voters_user ON eligible_voters (user_id)`

const createBallotsElectionIndex = `CREATE INDEX IF NOT EXISTS idx_ballots_election ON ballots (election_id)`

const createAuditElectionIndex = `CREATE INDEX IF NOT EXISTS idx_audit_logs_election ON audit_logs (election_id, created_at)`
