package mmap

import (
	"errors"
	"os"
)

// Prot is a set of page permissions.
type Prot uint8

const (
	// ProtRead allows loads.
	ProtRead Prot = 1 << iota
	// ProtWrite allows stores.
	ProtWrite
	// ProtExec allows instruction fetch.
	ProtExec
)

// String renders the permission set as "rwx" flags.
func (p Prot) String() string {
	b := []byte("---")
	if p&ProtRead != 0 {
		b[0] = 'r'
	}
	if p&ProtWrite != 0 {
		b[1] = 'w'
	}
	if p&ProtExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
)

var (
	// ErrClosed is returned when using a closed mapping or reservation.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for non-positive or overflowing sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned when the offset is invalid (e.g. negative).
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrAddressInUse is returned when a fixed base address cannot be honored.
	ErrAddressInUse = errors.New("mmap: base address unavailable")
	// ErrExhausted is returned when a commit would run past the reservation.
	ErrExhausted = errors.New("mmap: reservation exhausted")
	// ErrUnsupported is returned on platforms without reservation support.
	ErrUnsupported = errors.New("mmap: reservations not supported on this platform")
)

// PageSize returns the OS page size.
func PageSize() int {
	return os.Getpagesize()
}

// RoundUp rounds n up to a multiple of the page size.
func RoundUp(n int) int {
	ps := PageSize()
	return (n + ps - 1) &^ (ps - 1)
}
