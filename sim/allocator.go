package sim

import "fmt"

// SelectionStrategy picks which free member of a pool satisfies a request.
// Used by pool resources created with NewPool; the free slice is already
// filtered down to members the request's predicate accepts, in pool order.
type SelectionStrategy interface {
	Select(req *Request, free []string) (member string, ok bool)
}

// FirstFree grants the first free member in pool order.
type FirstFree struct{}

func (FirstFree) Select(_ *Request, free []string) (string, bool) {
	if len(free) == 0 {
		return "", false
	}
	return free[0], true
}

// ValidSelectionStrategies lists the names NewSelectionStrategy accepts.
var ValidSelectionStrategies = []string{"first-free"}

// IsValidSelectionStrategy reports whether name is a known strategy name.
// An empty string is valid and maps to the default.
func IsValidSelectionStrategy(name string) bool {
	if name == "" {
		return true
	}
	for _, v := range ValidSelectionStrategies {
		if name == v {
			return true
		}
	}
	return false
}

// NewSelectionStrategy creates a selection strategy by name. An empty string
// defaults to FirstFree (for CLI flag default compatibility). Panics on
// unrecognized names.
func NewSelectionStrategy(name string) SelectionStrategy {
	if !IsValidSelectionStrategy(name) {
		panic(fmt.Sprintf("unknown selection strategy %q", name))
	}
	switch name {
	case "", "first-free":
		return FirstFree{}
	default:
		panic(fmt.Sprintf("unhandled selection strategy %q", name))
	}
}

// NewPool creates a resource whose slots are named members, admitted through
// the given selection strategy (nil means FirstFree). Capacity equals the
// member count. Empty or duplicate member names are a configuration error.
func NewPool(s *Scheduler, members []string, strategy SelectionStrategy) (*Resource, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("pool requires at least one member")
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m == "" {
			return nil, fmt.Errorf("pool member names must be non-empty")
		}
		if seen[m] {
			return nil, fmt.Errorf("duplicate pool member %q", m)
		}
		seen[m] = true
	}
	if strategy == nil {
		strategy = FirstFree{}
	}
	r, err := NewResource(s, len(members))
	if err != nil {
		return nil, err
	}
	r.members = append([]string(nil), members...)
	r.selector = strategy
	return r, nil
}
