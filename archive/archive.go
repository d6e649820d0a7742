package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/glr/internal/bytereader"
	"github.com/hupe1980/glr/internal/conv"
	"github.com/hupe1980/glr/internal/hash"
)

const (
	// Magic starts every archive.
	Magic = "GLRA"
	// Version is the format version written by Writer.
	Version uint8 = 1
	// Ext is the file extension of archives in a class repository.
	Ext = ".glra"

	// DefaultMaxEntrySize is the largest uncompressed entry Writer accepts and
	// Read admits unless ReadOptions says otherwise.
	DefaultMaxEntrySize = 64 << 20
)

var (
	// ErrCorrupt is returned for malformed archives.
	ErrCorrupt = errors.New("archive: corrupt")
	// ErrChecksum is returned when an entry does not match its checksum.
	ErrChecksum = errors.New("archive: checksum mismatch")
	// ErrNotFound is returned by Open for a missing entry.
	ErrNotFound = errors.New("archive: entry not found")
	// ErrDuplicateEntry is returned when adding a name twice.
	ErrDuplicateEntry = errors.New("archive: duplicate entry")
	// ErrEntryTooLarge is returned for an entry whose uncompressed size is over
	// the limit.
	ErrEntryTooLarge = errors.New("archive: entry too large")
)

// ReadOptions bounds what Read admits. Limits are checked against the entry
// headers, before any entry is inflated.
type ReadOptions struct {
	// MaxEntrySize is the largest raw_len accepted. 0 means DefaultMaxEntrySize.
	MaxEntrySize int
	// MaxRatio, when positive, rejects compressed entries whose raw_len is more
	// than MaxRatio times their stored_len.
	MaxRatio int
}

// Entry describes one archived class file.
type Entry struct {
	Name      string
	Codec     Codec
	RawLen    int
	StoredLen int
	CRC       uint32

	data []byte // stored bytes
}

// Writer accumulates entries.
type Writer struct {
	codec   Codec
	entries []Entry
	names   map[string]struct{}
}

// NewWriter returns a writer that compresses entries with codec.
func NewWriter(codec Codec) *Writer {
	return &Writer{
		codec: codec,
		names: make(map[string]struct{}),
	}
}

// Add compresses data and appends it under name.
func (w *Writer) Add(name string, data []byte) error {
	if name == "" || len(name) > math.MaxUint16 {
		return fmt.Errorf("archive: invalid entry name length %d", len(name))
	}
	if _, err := conv.IntToUint32(len(data)); err != nil {
		return fmt.Errorf("archive: entry %q: %w", name, err)
	}
	if len(data) > DefaultMaxEntrySize {
		return fmt.Errorf("%w: %q is %d bytes", ErrEntryTooLarge, name, len(data))
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, name)
	}
	stored, codec, err := compress(data, w.codec)
	if err != nil {
		return fmt.Errorf("archive: compress %q: %w", name, err)
	}
	w.names[name] = struct{}{}
	w.entries = append(w.entries, Entry{
		Name:      name,
		Codec:     codec,
		RawLen:    len(data),
		StoredLen: len(stored),
		CRC:       hash.CRC32C(data),
		data:      stored,
	})
	return nil
}

// Len returns the number of entries added.
func (w *Writer) Len() int { return len(w.entries) }

// Bytes returns the encoded archive.
func (w *Writer) Bytes() []byte {
	size := len(Magic) + 5
	for _, e := range w.entries {
		size += 15 + len(e.Name) + len(e.data)
	}
	out := make([]byte, 0, size)
	out = append(out, Magic...)
	out = append(out, Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(w.entries)))
	for _, e := range w.entries {
		out = binary.LittleEndian.AppendUint16(out, uint16(len(e.Name)))
		out = append(out, e.Name...)
		out = append(out, uint8(e.Codec))
		out = binary.LittleEndian.AppendUint32(out, uint32(e.RawLen))
		out = binary.LittleEndian.AppendUint32(out, uint32(e.StoredLen))
		out = binary.LittleEndian.AppendUint32(out, e.CRC)
		out = append(out, e.data...)
	}
	return out
}

// WriteTo writes the encoded archive to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.Bytes())
	return int64(n), err
}

// Archive is a parsed archive. Entry data aliases the buffer passed to Read.
type Archive struct {
	entries []Entry
	index   map[string]int
}

// Read parses the archive index in data. Entries are not inflated until
// opened.
func Read(data []byte, optFns ...func(*ReadOptions)) (*Archive, error) {
	opts := ReadOptions{MaxEntrySize: DefaultMaxEntrySize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxEntrySize <= 0 {
		opts.MaxEntrySize = DefaultMaxEntrySize
	}

	r := bytereader.New(data)
	magic, err := r.Bytes(len(Magic))
	if err != nil || string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	version, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	// Every entry takes at least 16 bytes; reject counts the data cannot hold.
	if uint64(count) > uint64(r.Len()/16) {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrCorrupt, count, r.Len())
	}

	a := &Archive{
		entries: make([]Entry, 0, count),
		index:   make(map[string]int, count),
	}
	for i := range count {
		e, err := readEntry(r, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorrupt, i, err)
		}
		if _, dup := a.index[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, e.Name)
		}
		a.index[e.Name] = len(a.entries)
		a.entries = append(a.entries, e)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	return a, nil
}

func readEntry(r *bytereader.Reader, opts ReadOptions) (Entry, error) {
	var e Entry
	n, err := r.U16()
	if err != nil {
		return e, err
	}
	name, err := r.Bytes(int(n))
	if err != nil {
		return e, err
	}
	codec, err := r.U8()
	if err != nil {
		return e, err
	}
	raw, err := r.U32()
	if err != nil {
		return e, err
	}
	stored, err := r.U32()
	if err != nil {
		return e, err
	}
	if e.CRC, err = r.U32(); err != nil {
		return e, err
	}
	if e.data, err = r.Bytes(int(stored)); err != nil {
		return e, err
	}
	e.Name = string(name)
	e.Codec = Codec(codec)
	e.RawLen = int(raw)
	e.StoredLen = int(stored)

	switch {
	case uint64(raw) > uint64(opts.MaxEntrySize):
		return e, fmt.Errorf("%w: %q raw size %d over %d", ErrEntryTooLarge, e.Name, raw, opts.MaxEntrySize)
	case e.Codec == CodecNone && raw != stored:
		return e, fmt.Errorf("%q: stored %d bytes, raw size %d", e.Name, stored, raw)
	case e.Codec != CodecNone && opts.MaxRatio > 0 && uint64(raw) > uint64(stored)*uint64(opts.MaxRatio):
		return e, fmt.Errorf("%w: %q inflates %d bytes to %d", ErrEntryTooLarge, e.Name, stored, raw)
	}
	return e, nil
}

// Len returns the number of entries.
func (a *Archive) Len() int { return len(a.entries) }

// Names returns the entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns the entry descriptions in archive order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		e.data = nil
		out[i] = e
	}
	return out
}

// Has reports whether the archive contains name.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Open inflates the entry name and verifies its checksum.
func (a *Archive) Open(name string) ([]byte, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	e := a.entries[i]
	data, err := decompress(e.data, e.Codec, e.RawLen)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	if got := hash.CRC32C(data); got != e.CRC {
		return nil, fmt.Errorf("%w: %q: got %08x, want %08x", ErrChecksum, name, got, e.CRC)
	}
	return data, nil
}
