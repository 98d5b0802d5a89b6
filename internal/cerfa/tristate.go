package cerfa

import (
	"bytes"
	"fmt"
)

// TriState is a yes/no answer that may also be left unanswered.
type TriState int

const (
	Unset TriState = iota
	Yes
	No
)

func (s TriState) String() string {
	switch s {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unset"
	}
}

// UnmarshalJSON accepts true, false and null.
func (s *TriState) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true":
		*s = Yes
	case "false":
		*s = No
	case "null":
		*s = Unset
	default:
		return fmt.Errorf("tri-state value must be true, false or null: %s", b)
	}
	return nil
}

func (s TriState) MarshalJSON() ([]byte, error) {
	switch s {
	case Yes:
		return []byte("true"), nil
	case No:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// checkboxSetter is the part of a form document the pair helper needs.
type checkboxSetter interface {
	SetChecked(name string, checked bool) error
}

// pairFailure is a box of a pair that could not be written.
type pairFailure struct {
	name string
	err  error
}

// setPair projects state onto the yes and no boxes of a checkbox pair.
// Unset touches neither box. Otherwise the opposite box is cleared before the
// chosen one is checked, so both are never on at once. It reports whether
// the chosen box was checked and every box that failed.
func setPair(doc checkboxSetter, state TriState, yes, no string) (bool, []pairFailure) {
	var chosen, opposite string
	switch state {
	case Yes:
		chosen, opposite = yes, no
	case No:
		chosen, opposite = no, yes
	default:
		return false, nil
	}

	var failures []pairFailure
	if err := doc.SetChecked(opposite, false); err != nil {
		failures = append(failures, pairFailure{name: opposite, err: err})
	}
	if err := doc.SetChecked(chosen, true); err != nil {
		return false, append(failures, pairFailure{name: chosen, err: err})
	}
	return true, failures
}
