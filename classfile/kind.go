package classfile

import (
	"fmt"
	"strings"
)

// Kind selects the variant of a class and the shape of its field records.
type Kind uint8

const (
	Enum   Kind = 0
	Struct Kind = 1
	Module Kind = 2
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k <= Module }

func (k Kind) String() string {
	switch k {
	case Enum:
		return "enum"
	case Struct:
		return "struct"
	case Module:
		return "module"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Access is a set of access flags on a class or method.
type Access uint8

const (
	Public   Access = 1 << iota
	Constant
	Static

	accessMask = Public | Constant | Static
)

// Validate rejects bits outside Public, Constant and Static. Any combination of
// the defined flags is accepted.
func (a Access) Validate() error {
	if a&^accessMask != 0 {
		return fmt.Errorf("%w: unknown bits %#02x", ErrBadAccessModifier, uint8(a&^accessMask))
	}
	return nil
}

// Has reports whether every flag in f is set.
func (a Access) Has(f Access) bool { return a&f == f }

func (a Access) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag Access
		name string
	}{
		{Public, "public"},
		{Constant, "const"},
		{Static, "static"},
	} {
		if a&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	if rest := a &^ accessMask; rest != 0 {
		parts = append(parts, fmt.Sprintf("%#02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}
