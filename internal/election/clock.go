package election

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase is the time-derived lifecycle stage of an election. The order of the
// constants is the order in which an unmodified election moves through them.
type Phase int

const (
	PhaseDraft Phase = iota
	PhaseNotOpenedVote
	PhaseOpenVote
	PhaseClosedVote
	PhaseResultAnnounce
)

var phaseNames = map[Phase]string{
	PhaseDraft:          "DRAFT",
	PhaseNotOpenedVote:  "NOT_OPENED_VOTE",
	PhaseOpenVote:       "OPEN_VOTE",
	PhaseClosedVote:     "CLOSED_VOTE",
	PhaseResultAnnounce: "RESULT_ANNOUNCE",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalJSON encodes the phase by name
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for phase, n := range phaseNames {
		if n == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", name)
}

// Clock is the wall-clock source. Tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns the same instant
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// PhaseAt derives the phase of e at now. Cancellation is not considered.
func PhaseAt(e *Election, now time.Time) Phase {
	switch {
	case e.PublishAt == nil:
		return PhaseDraft
	case now.Before(e.VotingOpensAt):
		return PhaseNotOpenedVote
	case now.Before(e.VotingClosesAt):
		return PhaseOpenVote
	case e.ResultAnnounceOpensAt != nil && !now.Before(*e.ResultAnnounceOpensAt):
		return PhaseResultAnnounce
	default:
		return PhaseClosedVote
	}
}

// Published reports whether publishAt is set and has been reached
func Published(e *Election, now time.Time) bool {
	return e.PublishAt != nil && !now.Before(*e.PublishAt)
}

// ResultWindowElapsed reports whether a configured announcement window has ended
func ResultWindowElapsed(e *Election, now time.Time) bool {
	return e.ResultAnnounceEndsAt != nil && now.After(*e.ResultAnnounceEndsAt)
}

// RegistrationOpen reports whether now falls inside the HYBRID registration window
func RegistrationOpen(e *Election, now time.Time) bool {
	if e.RegistrationOpensAt == nil || e.RegistrationClosesAt == nil {
		return false
	}
	return !now.Before(*e.RegistrationOpensAt) && now.Before(*e.RegistrationClosesAt)
}
