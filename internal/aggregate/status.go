package aggregate

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// Family names a logical group of operations that share a status flag.
type Family string

// SyncState is the status bookkeeping embedded in every aggregate. Its
// methods return updated copies and never mutate the receiver.
type SyncState struct {
	Status     Status            `json:"status"`
	LastError  string            `json:"lastError,omitempty"`
	Operations map[Family]Status `json:"operations,omitempty"`

	pending map[Family]int
}

// Idle is the initial state of a fresh aggregate.
func Idle() SyncState {
	return SyncState{Status: StatusIdle}
}

// Begin marks f in flight and clears the previous error.
func (s SyncState) Begin(f Family) SyncState {
	out := s.clone()
	out.pending[f]++
	out.Operations[f] = StatusLoading
	out.LastError = ""
	out.Status = out.overall()
	return out
}

// Succeed settles one in-flight f successfully.
func (s SyncState) Succeed(f Family) SyncState {
	out := s.clone()
	out.settle(f)
	if out.pending[f] == 0 {
		out.Operations[f] = StatusIdle
	}
	out.Status = out.overall()
	return out
}

// Fail settles one in-flight f with a human readable reason.
func (s SyncState) Fail(f Family, reason string) SyncState {
	out := s.clone()
	out.settle(f)
	out.Operations[f] = StatusError
	out.LastError = reason
	out.Status = StatusError
	return out
}

// Pending reports how many operations of f are in flight.
func (s SyncState) Pending(f Family) int {
	return s.pending[f]
}

// InFlight reports the number of operations in flight across all families.
func (s SyncState) InFlight() int {
	n := 0
	for _, c := range s.pending {
		n += c
	}
	return n
}

func (s *SyncState) settle(f Family) {
	if s.pending[f] > 0 {
		s.pending[f]--
	}
	if s.pending[f] == 0 {
		delete(s.pending, f)
	}
}

// overall is error while an unacknowledged failure is recorded, loading while
// anything is in flight, idle otherwise.
func (s SyncState) overall() Status {
	switch {
	case s.LastError != "":
		return StatusError
	case s.InFlight() > 0:
		return StatusLoading
	default:
		return StatusIdle
	}
}

func (s SyncState) clone() SyncState {
	out := SyncState{
		Status:     s.Status,
		LastError:  s.LastError,
		Operations: make(map[Family]Status, len(s.Operations)+1),
		pending:    make(map[Family]int, len(s.pending)+1),
	}
	for k, v := range s.Operations {
		out.Operations[k] = v
	}
	for k, v := range s.pending {
		out.pending[k] = v
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s SyncState) Clone() SyncState {
	if s.Operations == nil && s.pending == nil {
		return s
	}
	return s.clone()
}
