package resolve

import "time"

// UpdatePolicy decides, given when a repository was last checked for an
// artifact, whether the resolver may attempt a fresh remote check instead
// of trusting what is already in the local repository.
type UpdatePolicy interface {
	ShouldCheck(lastChecked time.Time, known bool) bool
}

// UpdatePolicyAlways always attempts a remote check.
type UpdatePolicyAlways struct{}

func (UpdatePolicyAlways) ShouldCheck(time.Time, bool) bool { return true }

// UpdatePolicyNever never attempts a remote check once the local repository
// has recorded any outcome (success or cached error) for the pair.
type UpdatePolicyNever struct{}

func (UpdatePolicyNever) ShouldCheck(_ time.Time, known bool) bool { return !known }

// UpdatePolicyDaily rechecks once calendar-day boundaries (by wall clock)
// have changed since lastChecked.
type UpdatePolicyDaily struct{}

func (UpdatePolicyDaily) ShouldCheck(lastChecked time.Time, known bool) bool {
	if !known {
		return true
	}
	now := time.Now()
	y1, m1, d1 := lastChecked.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// UpdatePolicyInterval rechecks once Interval has elapsed since lastChecked.
type UpdatePolicyInterval struct {
	Interval time.Duration
}

func (p UpdatePolicyInterval) ShouldCheck(lastChecked time.Time, known bool) bool {
	if !known {
		return true
	}
	return time.Since(lastChecked) >= p.Interval
}
