package embedding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingInputRole is returned when a model exposes no input for a role.
	ErrMissingInputRole = errors.New("model input role not found")
	// ErrDuplicateInputRole is returned when two inputs resolve to the same role.
	ErrDuplicateInputRole = errors.New("model input role bound twice")
	// ErrUnknownInput is returned for an input name that matches no role.
	ErrUnknownInput = errors.New("model input matches no role")
)

// Role is the meaning of one model input slot.
type Role int

const (
	RoleIDs Role = iota
	RoleMask
	RoleSegment
)

func (r Role) String() string {
	switch r {
	case RoleIDs:
		return "ids"
	case RoleMask:
		return "mask"
	case RoleSegment:
		return "segment"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Binding names the model input that receives each role.
type Binding struct {
	IDs     string
	Mask    string
	Segment string
}

// RoleOf returns the role bound to name.
func (b Binding) RoleOf(name string) (Role, bool) {
	switch name {
	case b.IDs:
		return RoleIDs, true
	case b.Mask:
		return RoleMask, true
	case b.Segment:
		return RoleSegment, true
	}
	return 0, false
}

// ClassifyInput maps an input name to its role. Segment is checked first so
// "token_type_ids" is not taken for the ids slot.
func ClassifyInput(name string) (Role, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "segment"), strings.Contains(lower, "type"):
		return RoleSegment, true
	case strings.Contains(lower, "mask"):
		return RoleMask, true
	case strings.Contains(lower, "ids"):
		return RoleIDs, true
	}
	return 0, false
}

// BindInputs resolves every input name to exactly one role. It fails when a
// name matches nothing, when a role is claimed twice, or when a role is left
// without an input.
func BindInputs(names []string) (Binding, error) {
	var b Binding
	slots := map[Role]*string{RoleIDs: &b.IDs, RoleMask: &b.Mask, RoleSegment: &b.Segment}

	for _, name := range names {
		role, ok := ClassifyInput(name)
		if !ok {
			return Binding{}, fmt.Errorf("%w: %q", ErrUnknownInput, name)
		}
		slot := slots[role]
		if *slot != "" {
			return Binding{}, fmt.Errorf("%w: %s claimed by %q and %q", ErrDuplicateInputRole, role, *slot, name)
		}
		*slot = name
	}

	for _, role := range []Role{RoleIDs, RoleMask, RoleSegment} {
		if *slots[role] == "" {
			return Binding{}, fmt.Errorf("%w: %s (inputs %v)", ErrMissingInputRole, role, names)
		}
	}
	return b, nil
}
