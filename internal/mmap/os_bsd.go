//go:build darwin || freebsd || openbsd

package mmap

const (
	reserveFlags = 0
	fixedFlags   = 0
)
