package session

import (
	"errors"
	"fmt"
)

// ErrInvalidIntent is returned by Dispatch for an intent missing its argument.
var ErrInvalidIntent = errors.New("invalid intent")

// IntentKind enumerates the user intents the session accepts.
type IntentKind int

const (
	Refresh IntentKind = iota
	ToggleActiveOnly
	ToggleNeighborhood
	ClearNeighborhoodFilter
	SelectMarker
	DismissDetail
)

func (k IntentKind) String() string {
	switch k {
	case Refresh:
		return "refresh"
	case ToggleActiveOnly:
		return "toggle_active_only"
	case ToggleNeighborhood:
		return "toggle_neighborhood"
	case ClearNeighborhoodFilter:
		return "clear_neighborhood_filter"
	case SelectMarker:
		return "select_marker"
	case DismissDetail:
		return "dismiss_detail"
	default:
		return fmt.Sprintf("intent(%d)", int(k))
	}
}

// Intent is one user action. Arg carries the neighborhood name for
// ToggleNeighborhood and the place identifier for SelectMarker.
type Intent struct {
	Kind IntentKind
	Arg  string
}

func (i Intent) validate() error {
	switch i.Kind {
	case Refresh, ToggleActiveOnly, ClearNeighborhoodFilter, DismissDetail:
		return nil
	case ToggleNeighborhood, SelectMarker:
		if i.Arg == "" {
			return fmt.Errorf("%w: %s requires an argument", ErrInvalidIntent, i.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidIntent, int(i.Kind))
	}
}
