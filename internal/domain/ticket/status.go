package ticket

import "time"

// Status is the ticket lifecycle status. It is always derived locally from
// the resolution timestamp; the remote status string is known to go stale
// relative to resolved_at and is never trusted verbatim.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusResolved
}

func (s Status) String() string {
	return string(s)
}

// DeriveStatus is the single mapping from resolution timestamp to status,
// applied on every read and merge path.
func DeriveStatus(resolvedAt *time.Time) Status {
	if resolvedAt == nil || resolvedAt.IsZero() {
		return StatusOpen
	}
	return StatusResolved
}
