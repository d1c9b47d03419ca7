package graphdata

import (
	"reflect"
)

// WriteList writes len(items), then calls write for each item in order.
func WriteList[T any](out *Output, items []T, write func(out *Output, v T) error) error {
	if err := out.WriteInt(len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := write(out, item); err != nil {
			return err
		}
	}
	return nil
}

// ReadList reads a count, then calls read exactly that many times. Unlike the
// usage path, order is preserved.
func ReadList[T any](in *Input, read func(in *Input) (T, error)) ([]T, error) {
	return AppendList(in, nil, read)
}

func AppendList[T any](in *Input, dst []T, read func(in *Input) (T, error)) ([]T, error) {
	n, err := in.ReadCount(0)
	if err != nil {
		return dst, err
	}
	if n == 0 {
		return dst, nil
	}
	if dst == nil {
		dst = make([]T, 0, min(n, 1024))
	}
	for range n {
		v, err := read(in)
		if err != nil {
			return dst, in.overshoot(err, n)
		}
		dst = append(dst, v)
	}
	return dst, nil
}

// ReadElementAs reads an element and checks that it has type T. A mismatch
// means the stream does not hold what the caller expects, so it is reported
// as a DataError.
func ReadElementAs[T Element](in *Input) (T, error) {
	var zero T
	elem, err := in.ReadElement()
	if err != nil {
		return zero, err
	}
	if elem == nil {
		return zero, nil
	}
	v, ok := elem.(T)
	if !ok {
		return zero, in.dataErrf(nil, "expected %v, got %T", reflect.TypeFor[T](), elem)
	}
	return v, nil
}

// WriteElementCollection writes a homogeneous collection: every element must
// have the same concrete type (a caller bug otherwise). An empty collection
// costs a single type ref.
//
// Order is preserved for plain kinds. Factored kinds come back grouped by
// factor key.
func WriteElementCollection[T Element](out *Output, elems []T) error {
	if len(elems) == 0 {
		return out.WriteInt32(nilTypeRef)
	}
	first := Element(elems[0])
	if isNilElement(first) {
		contractViolation("WriteElementCollection: nil element at index 0")
	}
	typ := reflect.TypeOf(first)
	items := make([]Element, len(elems))
	for i, e := range elems {
		if isNilElement(e) {
			contractViolation("WriteElementCollection: nil element at index %d", i)
		}
		if t := reflect.TypeOf(e); t != typ {
			contractViolation("WriteElementCollection: element %d is %v, expected %v like element 0", i, t, typ)
		}
		items[i] = e
	}
	return out.writeCollection(out.session.schema.KindOf(first), items)
}

// ReadElementCollection reads a collection written by WriteElementCollection,
// pushing each element into a container of the caller's choosing.
func ReadElementCollection[T Element](in *Input, push func(T)) error {
	return in.readCollection(func(elem Element) error {
		v, ok := elem.(T)
		if !ok {
			return in.dataErrf(nil, "expected %v, got %T", reflect.TypeFor[T](), elem)
		}
		push(v)
		return nil
	})
}

func AppendElementCollection[T Element](in *Input, dst []T) ([]T, error) {
	err := ReadElementCollection(in, func(v T) {
		dst = append(dst, v)
	})
	return dst, err
}
