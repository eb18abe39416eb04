package state

// Selection is the focus state machine: Unfocused, or Focused on one place
// identifier. The zero value is Unfocused.
type Selection struct {
	focused string
}

// Focused returns the focused identifier and whether a place is focused.
func (s *Selection) Focused() (string, bool) {
	return s.focused, s.focused != ""
}

// Select focuses id when exists reports a resolved place for it. Selecting a
// different place while focused moves focus directly. Returns whether the state
// changed.
func (s *Selection) Select(id string, exists func(string) bool) bool {
	if id == "" || !exists(id) {
		return false
	}
	if s.focused == id {
		return false
	}
	s.focused = id
	return true
}

// Dismiss returns to Unfocused. Dismissing while Unfocused is a no-op. Returns
// whether the state changed.
func (s *Selection) Dismiss() bool {
	if s.focused == "" {
		return false
	}
	s.focused = ""
	return true
}
