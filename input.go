package graphdata

import (
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// MaxCount caps every count read from a stream: element counts, group counts,
// list lengths and string lengths. Anything larger is treated as corruption.
const MaxCount = 1 << 24

// Input reads a graphdata stream. Like Output, it does no buffering of its
// own and is not safe for concurrent use.
type Input struct {
	r       io.Reader
	session *Session
	off     int64
	slice   *countingReader // non-nil for NewBytesInput
	scratch [8]byte
}

func NewInput(r io.Reader, s *Session) *Input {
	if s == nil {
		panic("graphdata: nil session")
	}
	return &Input{r: r, session: s}
}

// NewBytesInput reads from an in-memory stream. Because the remaining length
// is known, counts that promise more data than is left are rejected as
// corruption before any allocation happens, and errors carry a hex excerpt.
func NewBytesInput(data []byte, s *Session) *Input {
	in := NewInput(nil, s)
	in.slice = &countingReader{data: data}
	in.r = in.slice
	return in
}

func (in *Input) Session() *Session {
	return in.session
}

// Offset returns the number of bytes consumed so far.
func (in *Input) Offset() int64 {
	return in.off
}

// Remaining returns the number of unread bytes, or -1 if unknown.
func (in *Input) Remaining() int {
	if in.slice == nil {
		return -1
	}
	return in.slice.remaining()
}

func (in *Input) dataErrf(err error, format string, args ...any) error {
	var data []byte
	if in.slice != nil {
		data = in.slice.data
	}
	return dataErrf(data, in.off, err, format, args...)
}

// Corruptf returns a DataError at the current offset. Element readers use it
// to reject field values the format does not allow.
func (in *Input) Corruptf(format string, args ...any) error {
	return in.dataErrf(nil, format, args...)
}

func (in *Input) readFull(b []byte) error {
	n, err := io.ReadFull(in.r, b)
	in.off += int64(n)
	if err == io.EOF {
		// every read is part of some structure, so running out is truncation
		return io.ErrUnexpectedEOF
	}
	return err
}

func (in *Input) ReadByte() (byte, error) {
	if err := in.readFull(in.scratch[:1]); err != nil {
		return 0, err
	}
	return in.scratch[0], nil
}

func (in *Input) ReadBool() (bool, error) {
	b, err := in.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, in.dataErrf(nil, "invalid bool byte 0x%02x", b)
	}
}

func (in *Input) ReadInt32() (int32, error) {
	if err := in.readFull(in.scratch[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(in.scratch[:4])), nil
}

func (in *Input) ReadInt() (int, error) {
	v, err := in.ReadInt32()
	return int(v), err
}

func (in *Input) ReadRawUint64() (uint64, error) {
	if err := in.readFull(in.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(in.scratch[:8]), nil
}

func (in *Input) ReadRawInt64() (int64, error) {
	v, err := in.ReadRawUint64()
	return int64(v), err
}

func (in *Input) ReadUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				break
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, in.dataErrf(nil, "uvarint overflows 64 bits")
}

// ReadCount reads a fixed 4-byte count and validates it. minSize is the
// smallest number of bytes a single counted item can occupy; when the input
// knows its remaining length, a count that cannot possibly fit is corruption.
func (in *Input) ReadCount(minSize int) (int, error) {
	v, err := in.ReadInt32()
	if err != nil {
		return 0, err
	}
	return in.checkCount(int64(v), minSize)
}

func (in *Input) checkCount(n int64, minSize int) (int, error) {
	if n < 0 {
		return 0, in.dataErrf(nil, "negative count %d", n)
	}
	if n > MaxCount {
		return 0, in.dataErrf(nil, "count %d exceeds limit %d", n, MaxCount)
	}
	if rem := in.Remaining(); rem >= 0 && n*int64(minSize) > int64(rem) {
		return 0, in.dataErrf(nil, "count %d needs at least %d bytes, only %d remaining", n, n*int64(minSize), rem)
	}
	return int(n), nil
}

// overshoot turns truncation inside a loop over n counted items into a
// DataError when reading from memory: the data is all there is, so the count
// promised more than it holds.
func (in *Input) overshoot(err error, n int) error {
	if err == io.ErrUnexpectedEOF && in.slice != nil {
		return in.dataErrf(err, "count %d exceeds available data", n)
	}
	return err
}

func (in *Input) readLength() (int, error) {
	v, err := in.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > MaxCount {
		return 0, in.dataErrf(nil, "length %d exceeds limit %d", v, MaxCount)
	}
	return in.checkCount(int64(v), 1)
}

func (in *Input) ReadVarBytes() ([]byte, error) {
	n, err := in.readLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := in.readFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (in *Input) ReadString() (string, error) {
	b, err := in.ReadVarBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", in.dataErrf(nil, "string is not valid UTF-8")
	}
	return string(b), nil
}

func (in *Input) ReadStrings() ([]string, error) {
	return ReadList(in, (*Input).ReadString)
}

// ReadElement reads one element written by Output.WriteElement. A nil element
// reads back as nil.
func (in *Input) ReadElement() (Element, error) {
	kind, err := in.readTypeRef()
	if err != nil {
		return nil, err
	}
	if kind == nil {
		return nil, nil
	}
	return kind.read(in)
}

// readTypeRef reads a type reference, processing a declaration if present.
// It returns a nil kind for the nil reference.
func (in *Input) readTypeRef() (*Kind, error) {
	ref, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	switch {
	case ref == nilTypeRef:
		return nil, nil
	case ref > 0:
		return in.session.kindFor(in, ref)
	default:
		id := -ref
		name, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		flags, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		if flags&^kindFlagFactored != 0 {
			return nil, in.dataErrf(nil, "element kind %q declared with unknown flags 0x%02x", name, flags)
		}
		return in.session.declare(in, id, name, flags&kindFlagFactored != 0)
	}
}
