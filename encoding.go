package graphdata

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

var valueBufPool = &sync.Pool{
	New: func() any {
		return &bytesBuilder{Buf: make([]byte, 0, 256)}
	},
}

// WriteValue writes an arbitrary Go value as length-prefixed MsgPack. Map keys
// are sorted, so equal values always produce equal bytes. Use it for
// free-form attributes that are not worth a dedicated element kind.
func (out *Output) WriteValue(v any) error {
	bb := valueBufPool.Get().(*bytesBuilder)
	defer func() {
		bb.Reset()
		valueBufPool.Put(bb)
	}()

	enc := msgpack.GetEncoder()
	enc.Reset(bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		// the value is produced by the caller's own code, not read from disk
		panic(fmt.Errorf("%w: failed to encode %T using MsgPack: %v", ErrContract, v, err))
	}
	return out.WriteVarBytes(bb.Buf)
}

// ReadValue reads a value written by WriteValue into ptr.
func (in *Input) ReadValue(ptr any) error {
	buf, err := in.ReadVarBytes()
	if err != nil {
		return err
	}
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err = dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return in.dataErrf(err, "failed to decode MsgPack into %T", ptr)
	}
	if r.Len() != 0 {
		return in.dataErrf(nil, "%d trailing bytes after MsgPack value", r.Len())
	}
	return nil
}
