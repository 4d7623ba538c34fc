package database

import "time"

// AuditLog represents one administrative or voting event in the audit trail
type AuditLog struct {
	ID         string    `json:"id" db:"id"`
	Action     string    `json:"action" db:"action"`
	Actor      string    `json:"actor" db:"actor"`
	ElectionID string    `json:"election_id" db:"election_id"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Audit actions
const (
	AuditElectionCreated   = "election.create"
	AuditElectionUpdated   = "election.update"
	AuditElectionDeleted   = "election.delete"
	AuditElectionPublished = "election.publish"
	AuditElectionCancelled = "election.cancel"
	AuditCandidateAdded    = "candidate.add"
	AuditVotersAdded       = "voters.add"
	AuditVoterRegistered   = "voter.register"
	AuditKeyReloaded       = "key.reload"
	AuditResultAnnounced   = "result.announce"
	AuditBallotCast        = "ballot.cast"
)
