package graphdata

// Marshal runs write against an in-memory Output bound to s and returns the
// bytes produced.
func Marshal(s *Session, write func(out *Output) error) ([]byte, error) {
	return AppendMarshal(nil, s, write)
}

// AppendMarshal is like Marshal, but appends to buf.
func AppendMarshal(buf []byte, s *Session, write func(out *Output) error) ([]byte, error) {
	bb := bytesBuilder{Buf: buf}
	out := NewOutput(&bb, s)
	if err := write(out); err != nil {
		return nil, err
	}
	return bb.Buf, nil
}

// Unmarshal runs read against data with an Input bound to s, and requires
// read to consume every byte.
func Unmarshal(s *Session, data []byte, read func(in *Input) error) error {
	in := NewBytesInput(data, s)
	if err := read(in); err != nil {
		return err
	}
	if rem := in.Remaining(); rem != 0 {
		return in.dataErrf(nil, "%d trailing bytes", rem)
	}
	return nil
}
