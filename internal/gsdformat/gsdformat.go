// Package gsdformat defines the fixed binary layout of a GSD file's header,
// index entries, and namelist entries, along with the element-type size
// table. Every struct here has a constant, version-independent byte size —
// there is no variable-length framing anywhere in the format.
package gsdformat

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic identifies a GSD file. Stored at byte offset 0 of every file.
const Magic uint64 = 0x65DF65DF65DF65DF

// Fixed sizes of the on-disk records, in bytes.
const (
	HeaderSize        = 256
	IndexEntrySize    = 32
	NamelistEntrySize = 128

	applicationLen = 64
	schemaLen      = 64
	reservedLen    = 80
)

// Initial allocation counts for a freshly initialized file.
const (
	InitialIndexAllocatedEntries    = 128
	InitialNamelistAllocatedEntries = 128
)

// CopyBufferSize is the chunk size used when physically relocating the
// index block during append-mode growth.
const CopyBufferSize = 16 * 1024

// Type tags an element's numeric type within a chunk.
type Type uint8

// Recognized element types. Zero is not a valid type so that a
// zero-initialized IndexEntry (an empty slot) never reads as a valid entry.
const (
	TypeUint8 Type = 1 + iota
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
)

// SizeOf returns the byte size of one element of the given type, or 0 if the
// type tag is not recognized. A return of 0 doubles as the "invalid type"
// signal used throughout entry validation.
func SizeOf(t Type) uint64 {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint64, TypeInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// MakeVersion packs a major.minor pair the way gsd_version is stored on
// disk: major in the high 16 bits, minor in the low 16 bits.
func MakeVersion(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

// SplitVersion unpacks a stored gsd_version into major, minor.
func SplitVersion(v uint32) (major, minor uint16) {
	return uint16(v >> 16), uint16(v & 0xFFFF)
}

// CurrentVersion is the version written by Initialize: 1.0.
var CurrentVersion = MakeVersion(1, 0)

// Header is the 256-byte record at file offset 0.
type Header struct {
	Magic                     uint64
	GSDVersion                uint32
	Application               [applicationLen]byte
	Schema                    [schemaLen]byte
	SchemaVersion             uint32
	IndexLocation             uint64
	IndexAllocatedEntries     uint64
	NamelistLocation          uint64
	NamelistAllocatedEntries  uint64
	Reserved                  [reservedLen]byte
}

// ApplicationString returns Application as a NUL-trimmed Go string.
func (h *Header) ApplicationString() string { return cString(h.Application[:]) }

// SchemaString returns Schema as a NUL-trimmed Go string.
func (h *Header) SchemaString() string { return cString(h.Schema[:]) }

// SetApplication copies s into Application, truncating to 63 bytes and
// always NUL-terminating, matching strncpy(..., 63); buf[63] = 0.
func (h *Header) SetApplication(s string) { setCString(h.Application[:], s) }

// SetSchema copies s into Schema, truncating to 63 bytes and always
// NUL-terminating.
func (h *Header) SetSchema(s string) { setCString(h.Schema[:], s) }

// Encode serializes the header to its fixed 256-byte little-endian layout.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	w := &byteWriter{buf: buf}
	w.putU64(h.Magic)
	w.putU32(h.GSDVersion)
	w.putBytes(h.Application[:])
	w.putBytes(h.Schema[:])
	w.putU32(h.SchemaVersion)
	w.putU64(h.IndexLocation)
	w.putU64(h.IndexAllocatedEntries)
	w.putU64(h.NamelistLocation)
	w.putU64(h.NamelistAllocatedEntries)
	w.putBytes(h.Reserved[:])
	return buf
}

// DecodeHeader parses a 256-byte buffer into a Header. buf must be exactly
// HeaderSize bytes.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderSize {
		return Header{}, fmt.Errorf("gsdformat: header buffer is %d bytes, want %d", len(buf), HeaderSize)
	}
	var h Header
	r := &byteReader{buf: buf}
	h.Magic = r.u64()
	h.GSDVersion = r.u32()
	copy(h.Application[:], r.bytes(applicationLen))
	copy(h.Schema[:], r.bytes(schemaLen))
	h.SchemaVersion = r.u32()
	h.IndexLocation = r.u64()
	h.IndexAllocatedEntries = r.u64()
	h.NamelistLocation = r.u64()
	h.NamelistAllocatedEntries = r.u64()
	copy(h.Reserved[:], r.bytes(reservedLen))
	return h, nil
}

// IndexEntry locates one chunk: which frame it belongs to, its shape (N
// rows x M columns of Type), and its byte offset in the file. Location 0
// marks an empty (unused) slot. The on-disk layout is 32 bytes: 28 bytes of
// fields plus a 1-byte Flags field (reserved, must be zero) and 3 bytes of
// padding.
type IndexEntry struct {
	Frame    uint64
	N        uint64
	Location int64
	ID       uint16
	M        uint8
	Type     Type
	Flags    uint8
}

// Empty reports whether this is an unused index slot.
func (e IndexEntry) Empty() bool { return e.Location == 0 }

// Encode serializes the entry to its fixed 32-byte little-endian layout.
func (e IndexEntry) Encode() []byte {
	buf := make([]byte, IndexEntrySize)
	w := &byteWriter{buf: buf}
	w.putU64(e.Frame)
	w.putU64(e.N)
	w.putU64(uint64(e.Location))
	w.putU16(e.ID)
	w.putU8(e.M)
	w.putU8(uint8(e.Type))
	w.putU8(e.Flags)
	w.putBytes(make([]byte, 3)) // reserved padding
	return buf
}

// DecodeIndexEntry parses a 32-byte buffer into an IndexEntry.
func DecodeIndexEntry(buf []byte) (IndexEntry, error) {
	if len(buf) != IndexEntrySize {
		return IndexEntry{}, fmt.Errorf("gsdformat: index entry buffer is %d bytes, want %d", len(buf), IndexEntrySize)
	}
	var e IndexEntry
	r := &byteReader{buf: buf}
	e.Frame = r.u64()
	e.N = r.u64()
	e.Location = int64(r.u64())
	e.ID = r.u16()
	e.M = r.u8()
	e.Type = Type(r.u8())
	e.Flags = r.u8()
	_ = r.bytes(3)
	return e, nil
}

// EncodeIndexEntries serializes a slice of entries back-to-back.
func EncodeIndexEntries(entries []IndexEntry) []byte {
	buf := make([]byte, len(entries)*IndexEntrySize)
	for i, e := range entries {
		copy(buf[i*IndexEntrySize:], e.Encode())
	}
	return buf
}

// DecodeIndexEntries parses a buffer of back-to-back entries. len(buf) must
// be a multiple of IndexEntrySize.
func DecodeIndexEntries(buf []byte) ([]IndexEntry, error) {
	if len(buf)%IndexEntrySize != 0 {
		return nil, fmt.Errorf("gsdformat: index buffer length %d is not a multiple of %d", len(buf), IndexEntrySize)
	}
	n := len(buf) / IndexEntrySize
	entries := make([]IndexEntry, n)
	for i := 0; i < n; i++ {
		e, err := DecodeIndexEntry(buf[i*IndexEntrySize : (i+1)*IndexEntrySize])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

// NamelistEntry is a single fixed-width, NUL-terminated name string.
type NamelistEntry struct {
	Name [NamelistEntrySize]byte
}

// String returns the NUL-trimmed name.
func (n NamelistEntry) String() string { return cString(n.Name[:]) }

// Empty reports whether this is an unused namelist slot (first byte zero).
func (n NamelistEntry) Empty() bool { return n.Name[0] == 0 }

// NewNamelistEntry builds an entry from s, truncated to 127 bytes and always
// NUL-terminated.
func NewNamelistEntry(s string) NamelistEntry {
	var n NamelistEntry
	setCString(n.Name[:], s)
	return n
}

// Encode serializes the entry to its fixed 128-byte layout.
func (n NamelistEntry) Encode() []byte {
	buf := make([]byte, NamelistEntrySize)
	copy(buf, n.Name[:])
	return buf
}

// DecodeNamelistEntry parses a 128-byte buffer into a NamelistEntry.
func DecodeNamelistEntry(buf []byte) (NamelistEntry, error) {
	if len(buf) != NamelistEntrySize {
		return NamelistEntry{}, fmt.Errorf("gsdformat: namelist entry buffer is %d bytes, want %d", len(buf), NamelistEntrySize)
	}
	var n NamelistEntry
	copy(n.Name[:], buf)
	return n, nil
}

// DecodeNamelistEntries parses a buffer of back-to-back namelist entries.
func DecodeNamelistEntries(buf []byte) ([]NamelistEntry, error) {
	if len(buf)%NamelistEntrySize != 0 {
		return nil, fmt.Errorf("gsdformat: namelist buffer length %d is not a multiple of %d", len(buf), NamelistEntrySize)
	}
	n := len(buf) / NamelistEntrySize
	entries := make([]NamelistEntry, n)
	for i := 0; i < n; i++ {
		e, err := DecodeNamelistEntry(buf[i*NamelistEntrySize : (i+1)*NamelistEntrySize])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// setCString copies s into dst, truncating to len(dst)-1 bytes and always
// NUL-terminating the result (matching strncpy(dst, s, len-1); dst[len-1]=0).
func setCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(dst) - 1
	if len(s) < n {
		n = len(s)
	}
	copy(dst, s[:n])
}

// byteWriter/byteReader are tiny little-endian cursors used to keep Encode
// and Decode symmetric and free of per-field offset arithmetic bugs. They
// wrap encoding/binary.LittleEndian, the format's declared byte order.
type byteWriter struct {
	buf []byte
	pos int
}

func (w *byteWriter) putU8(v uint8) { w.buf[w.pos] = v; w.pos++ }
func (w *byteWriter) putU16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}
func (w *byteWriter) putU32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}
func (w *byteWriter) putU64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}
func (w *byteWriter) putBytes(b []byte) {
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u8() uint8 { v := r.buf[r.pos]; r.pos++; return v }
func (r *byteReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}
func (r *byteReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}
func (r *byteReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}
func (r *byteReader) bytes(n int) []byte {
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}
