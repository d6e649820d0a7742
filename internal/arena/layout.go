package arena

import (
	"fmt"
	"math/bits"
)

// Layout assigns every memory range the loader owns. Keeping the table in one
// place makes an address identify its subsystem.
type Layout struct {
	Metadata Config // classes, fields, methods, constant pools
	Symbols  Config // class-name table slots
	Code     Config // bytecode, mapped executable
}

// Fixed bases on 64-bit hosts, 1 TiB apart.
const (
	MetadataBase uint64 = 0x2000_0000_0000
	SymbolsBase  uint64 = 0x2100_0000_0000
	CodeBase     uint64 = 0x2200_0000_0000
)

// DefaultLayout returns the fixed-address layout. 32-bit hosts get
// FloatingLayout.
func DefaultLayout() Layout {
	if bits.UintSize < 64 {
		return FloatingLayout()
	}
	l := FloatingLayout()
	l.Metadata.Base = MetadataBase
	l.Symbols.Base = SymbolsBase
	l.Code.Base = CodeBase
	return l
}

// FloatingLayout uses the default sizes but lets the OS place every range.
func FloatingLayout() Layout {
	return Layout{
		Metadata: Config{Name: "metadata", Reserve: 1 << 30},
		Symbols:  Config{Name: "symbols", Reserve: 256 << 20},
		Code:     Config{Name: "code", Reserve: 256 << 20, Exec: true},
	}
}

// Configs returns the ranges in table order.
func (l Layout) Configs() []Config {
	return []Config{l.Metadata, l.Symbols, l.Code}
}

// Validate checks sizes and that no two fixed ranges overlap.
func (l Layout) Validate() error {
	cfgs := l.Configs()
	for i, c := range cfgs {
		if c.Name == "" {
			return fmt.Errorf("%w: range %d has no name", ErrInvalidConfig, i)
		}
		if c.Reserve <= DefaultAlignment {
			return fmt.Errorf("%w: %q reserve %d", ErrInvalidConfig, c.Name, c.Reserve)
		}
		if c.Base == 0 {
			continue
		}
		for _, o := range cfgs[i+1:] {
			if o.Base == 0 {
				continue
			}
			if c.Base < o.Base+uint64(o.Reserve) && o.Base < c.Base+uint64(c.Reserve) {
				return fmt.Errorf("%w: %q and %q overlap", ErrInvalidConfig, c.Name, o.Name)
			}
		}
	}
	return nil
}
