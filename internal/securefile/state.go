package securefile

// State is where a SecureFile is in its lifecycle.
type State int

const (
	StateCreated State = iota
	// StateSealed: owner-read-only, no platform barrier.
	StateSealed
	// StateImmutable: an OS-enforced flag or ACL is in place.
	StateImmutable
	// StateSealedAdvisory: guarded by a held advisory lock only.
	StateSealedAdvisory
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSealed:
		return "sealed"
	case StateImmutable:
		return "immutable"
	case StateSealedAdvisory:
		return "sealed-advisory"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

func stateOf(s *Seal) State {
	switch {
	case s.Immutable:
		return StateImmutable
	case s.Advisory:
		return StateSealedAdvisory
	default:
		return StateSealed
	}
}
