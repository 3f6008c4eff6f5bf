package account

// Status is the lifecycle state of an account.
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusActive          Status = "ACTIVE"
	StatusInactive        Status = "INACTIVE"
	StatusFrozen          Status = "FROZEN"
	StatusSuspended       Status = "SUSPENDED"
	StatusClosed          Status = "CLOSED"
)

// IsValid reports whether s is a known account status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0 && s.IsValid()
}

// transitions is the single source of truth for legal status changes.
// CLOSED has no outgoing edges.
var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusActive},
	StatusActive:          {StatusFrozen, StatusSuspended, StatusInactive, StatusClosed},
	StatusFrozen:          {StatusActive, StatusClosed},
	StatusSuspended:       {StatusActive, StatusClosed},
	StatusInactive:        {StatusActive, StatusClosed},
	StatusClosed:          {},
}

// CanTransition reports whether the edge from -> to exists in the status
// graph. Self-transitions are not edges.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
