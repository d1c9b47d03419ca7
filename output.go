package graphdata

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"
)

const (
	kindFlagFactored byte = 1 << 0

	// nilTypeRef stands for a nil element, or for an empty collection.
	nilTypeRef int32 = 0
)

// Output writes a graphdata stream. It does no buffering of its own; wrap the
// underlying writer in a bufio.Writer when writing to a file.
//
// An Output is not safe for concurrent use, but any number of Outputs may
// share one Session.
type Output struct {
	w       io.Writer
	session *Session
	n       int64
	scratch [binary.MaxVarintLen64]byte
}

func NewOutput(w io.Writer, s *Session) *Output {
	if s == nil {
		panic("graphdata: nil session")
	}
	return &Output{w: w, session: s}
}

func (out *Output) Session() *Session {
	return out.session
}

// Len returns the number of bytes written so far.
func (out *Output) Len() int64 {
	return out.n
}

func (out *Output) raw(b []byte) error {
	n, err := out.w.Write(b)
	out.n += int64(n)
	return err
}

// Write is not supported: a run of raw bytes carries no length and cannot be
// read back. Output implements io.Writer only so that handing it to an
// io.Writer consumer fails loudly instead of corrupting the stream. Use
// WriteVarBytes.
func (out *Output) Write(p []byte) (int, error) {
	unsupported("unframed Write of raw bytes, use WriteVarBytes")
	return 0, nil
}

func (out *Output) WriteByte(v byte) error {
	out.scratch[0] = v
	return out.raw(out.scratch[:1])
}

func (out *Output) WriteBool(v bool) error {
	if v {
		return out.WriteByte(1)
	}
	return out.WriteByte(0)
}

// WriteInt32 writes a fixed 4-byte big-endian integer.
func (out *Output) WriteInt32(v int32) error {
	binary.BigEndian.PutUint32(out.scratch[:4], uint32(v))
	return out.raw(out.scratch[:4])
}

// WriteInt writes v as a fixed 4-byte integer. Values outside the int32 range
// are a caller bug.
func (out *Output) WriteInt(v int) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		contractViolation("WriteInt(%d) does not fit into 32 bits", v)
	}
	return out.WriteInt32(int32(v))
}

// WriteRawUint64 writes v verbatim as 8 big-endian bytes. Use it for content
// hashes and timestamps, where every bit matters and nothing compresses.
func (out *Output) WriteRawUint64(v uint64) error {
	binary.BigEndian.PutUint64(out.scratch[:8], v)
	return out.raw(out.scratch[:8])
}

func (out *Output) WriteRawInt64(v int64) error {
	return out.WriteRawUint64(uint64(v))
}

func (out *Output) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(out.scratch[:], v)
	return out.raw(out.scratch[:n])
}

func (out *Output) WriteVarBytes(v []byte) error {
	if err := out.WriteUvarint(uint64(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return out.raw(v)
}

// WriteString writes a uvarint byte length followed by the UTF-8 bytes.
func (out *Output) WriteString(v string) error {
	if err := out.WriteUvarint(uint64(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return out.raw([]byte(v))
}

func (out *Output) WriteStrings(v []string) error {
	return WriteList(out, v, (*Output).WriteString)
}

// WriteElement writes a single element of any defined kind, preceded by its
// type reference. Factored elements carry their factor key inline. A nil
// element is allowed and reads back as nil.
func (out *Output) WriteElement(elem Element) error {
	if isNilElement(elem) {
		return out.WriteInt32(nilTypeRef)
	}
	kind := out.session.schema.KindOf(elem)
	if err := out.writeTypeRef(kind); err != nil {
		return err
	}
	if kind.factored {
		fe := kind.asFactored(elem)
		key := fe.FactorKey()
		kind.checkFactorKey(key)
		if err := out.WriteElement(key); err != nil {
			return err
		}
	}
	return elem.WriteFields(out)
}

// writeTypeRef writes the compact id of kind, declaring it first if this
// session has not seen it yet. See doc.go for the layout.
func (out *Output) writeTypeRef(kind *Kind) error {
	id, isNew := out.session.idFor(kind)
	if !isNew {
		return out.WriteInt32(id)
	}
	if err := out.WriteInt32(-id); err != nil {
		return err
	}
	if err := out.WriteString(kind.name); err != nil {
		return err
	}
	var flags byte
	if kind.factored {
		flags |= kindFlagFactored
	}
	return out.WriteByte(flags)
}

func isNilElement(elem Element) bool {
	if elem == nil {
		return true
	}
	v := reflect.ValueOf(elem)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
