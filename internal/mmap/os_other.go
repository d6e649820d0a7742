//go:build !linux && !darwin && !freebsd && !openbsd && !windows

package mmap

import "os"

func osReserve(uintptr, int) ([]byte, error) { return nil, ErrUnsupported }

func osCommit([]byte, Prot) error { return ErrUnsupported }

func osRelease([]byte) error { return nil }

func osMapFile(*os.File, int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osAdvise([]byte, AccessPattern) error { return nil }
