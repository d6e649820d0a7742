//go:build linux

package mmap

import "golang.org/x/sys/unix"

const (
	reserveFlags = unix.MAP_NORESERVE
	// Kernels older than 4.17 ignore the flag and treat base as a hint;
	// osReserve verifies the returned address either way.
	fixedFlags = unix.MAP_FIXED_NOREPLACE
)
