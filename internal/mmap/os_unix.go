//go:build linux || darwin || freebsd || openbsd

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func osReserve(base uintptr, size int) ([]byte, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANON | reserveFlags
	if base != 0 {
		flags |= fixedFlags
	}

	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(base), uintptr(size), unix.PROT_NONE, flags) //nolint:govet // base is an address hint, not a Go pointer
	if err != nil {
		if err == unix.EEXIST {
			return nil, ErrAddressInUse
		}
		return nil, err
	}
	if base != 0 && uintptr(p) != base {
		// Kernel treated the base as a hint and put the range elsewhere.
		_ = unix.MunmapPtr(p, uintptr(size))
		return nil, ErrAddressInUse
	}
	return unsafe.Slice((*byte)(p), size), nil
}

func osCommit(b []byte, prot Prot) error {
	return unix.Mprotect(b, unixProt(prot))
}

func osRelease(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.MunmapPtr(unsafe.Pointer(unsafe.SliceData(b)), uintptr(len(b)))
}

func unixProt(p Prot) int {
	prot := unix.PROT_NONE
	if p&ProtRead != 0 {
		prot |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

func osMapFile(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// The hint is advisory; EINVAL from an unaligned slice is not an error.
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}
