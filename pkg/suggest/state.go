package suggest

import "github.com/panchamjain/suvidha/pkg/search"

type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateSearching  State = "searching"
	StatePopulated  State = "populated"
	StateEmpty      State = "empty"
	StateErrored    State = "errored"
)

// Snapshot is the observable state of an Orchestrator.
type Snapshot struct {
	State       State                 `json:"state"`
	Query       string                `json:"query"`
	Suggestions []search.SearchResult `json:"suggestions"`
	Source      search.Source         `json:"source,omitempty"`
	Generation  uint64                `json:"generation"`
	Error       string                `json:"error,omitempty"`
}

// Visible reports whether the suggestion panel should be shown.
func (s Snapshot) Visible() bool {
	return s.State == StatePopulated
}
