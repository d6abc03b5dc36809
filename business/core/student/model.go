package student

import "time"

// Student represents a student record as stored on the ledger.
type Student struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Phase represents the coarse state of the view.
type Phase string

// Set of phases the view moves through.
const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// State is a snapshot of everything the view renders.
type State struct {
	Phase    Phase     `json:"phase"`
	Students []Student `json:"students"`
	Loaded   bool      `json:"loaded"`
	Total    uint64    `json:"total"`
	Searched *Student  `json:"searched,omitempty"`
	Loading  bool      `json:"loading"`
	Err      string    `json:"error,omitempty"`
	Account  string    `json:"account,omitempty"`
	Contract string    `json:"contract,omitempty"`
}

// copy returns a deep copy of the state so callers can't mutate the cache.
func (s State) copy() State {
	cpy := s

	if s.Students != nil {
		cpy.Students = make([]Student, len(s.Students))
		copy(cpy.Students, s.Students)
	}

	if s.Searched != nil {
		found := *s.Searched
		cpy.Searched = &found
	}

	return cpy
}

// Set of event kinds published after successful actions.
const (
	EventRegistered = "registered"
	EventRemoved    = "removed"
	EventReloaded   = "reloaded"
)

// Event describes a change to the cached roster.
type Event struct {
	Kind  string    `json:"kind"`
	ID    uint64    `json:"id,omitempty"`
	Name  string    `json:"name,omitempty"`
	Total uint64    `json:"total"`
	Count int       `json:"count"`
	Time  time.Time `json:"time"`
}
