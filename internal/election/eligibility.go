package election

import (
	"fmt"
	"time"
)

// DefaultOnsiteGracePeriod keeps ONSITE elections without a result window
// listed for a week after voting closes, while results are tallied by hand.
const DefaultOnsiteGracePeriod = 7 * 24 * time.Hour

// Classifier decides which elections a voter sees and through which channel
// they take part. The shared date comparisons live in clock.go; only the
// per-channel differences are expressed here.
type Classifier struct {
	onsiteGrace time.Duration
}

// NewClassifier returns a classifier. A non-positive grace falls back to DefaultOnsiteGracePeriod.
func NewClassifier(onsiteGrace time.Duration) *Classifier {
	if onsiteGrace <= 0 {
		onsiteGrace = DefaultOnsiteGracePeriod
	}
	return &Classifier{onsiteGrace: onsiteGrace}
}

// IsVisible reports whether e should appear in the voter's election list at now.
func (c *Classifier) IsVisible(e *Election, v *EligibleVoter, now time.Time) bool {
	if v == nil || v.ElectionID != e.ID || e.PublishAt == nil {
		return false
	}

	switch e.Channel {
	case ChannelOnsite:
		if !Published(e, now) {
			return false
		}
		if e.ResultAnnounceEndsAt != nil {
			return !ResultWindowElapsed(e, now)
		}
		return !now.After(e.VotingClosesAt.Add(c.onsiteGrace))
	case ChannelOnline:
		return Published(e, now) && !ResultWindowElapsed(e, now)
	case ChannelHybrid:
		opensAt := e.PublishAt
		if e.RegistrationOpensAt != nil {
			opensAt = e.RegistrationOpensAt
		}
		return !now.Before(*opensAt) && !ResultWindowElapsed(e, now)
	default:
		return false
	}
}

// RegistrationState returns the channel a HYBRID voter takes part through,
// or nil when the election is not HYBRID.
func RegistrationState(e *Election, v *EligibleVoter) *Channel {
	if e.Channel != ChannelHybrid || v == nil {
		return nil
	}
	state := ChannelOnsite
	if v.Channel == ChannelOnline {
		state = ChannelOnline
	}
	return &state
}

// CheckVoterChannel validates the channel assigned to a voter against the election channel.
func CheckVoterChannel(electionChannel, voterChannel Channel) error {
	switch voterChannel {
	case ChannelOnsite, ChannelOnline:
	default:
		return fmt.Errorf("%w: voter channel must be ONSITE or ONLINE, got %q", ErrInvalidEligibility, voterChannel)
	}
	if electionChannel != ChannelHybrid && electionChannel != voterChannel {
		return fmt.Errorf("%w: %s voter in %s election", ErrInvalidEligibility, voterChannel, electionChannel)
	}
	return nil
}

// CheckCast validates that v may cast in e with the given proof. ONSITE voters
// must carry a complete proctoring proof, ONLINE voters must carry none.
func (c *Classifier) CheckCast(e *Election, v *EligibleVoter, proof *CastProof) error {
	if v == nil || v.ElectionID != e.ID {
		return fmt.Errorf("%w: voter does not belong to election", ErrInvalidEligibility)
	}
	if err := CheckVoterChannel(e.Channel, v.Channel); err != nil {
		return err
	}
	switch v.Channel {
	case ChannelOnsite:
		if !proof.Complete() {
			return fmt.Errorf("%w: onsite ballots require a cast location and proof image", ErrInvalidEligibility)
		}
	case ChannelOnline:
		if !proof.Empty() {
			return fmt.Errorf("%w: online ballots must not carry onsite proof", ErrInvalidEligibility)
		}
	}
	return nil
}
