package graphdata

import (
	"errors"
	"testing"
)

type (
	ownerRef struct {
		Name string
	}

	classRef struct {
		Name string
	}

	memberRef struct {
		Owner ownerRef
		Name  string
	}

	stamp struct {
		Label string
		Hash  uint64
	}

	// looseMember accepts any key kind on read and returns whatever it holds
	looseMember struct {
		Key  Element
		Name string
	}

	listKey struct {
		Names []string
	}
)

var (
	testSchema = NewSchema()

	ownerKind = Define(testSchema, "test.owner", func(in *Input) (ownerRef, error) {
		name, err := in.ReadString()
		return ownerRef{name}, err
	})
	classKind = Define(testSchema, "test.class", func(in *Input) (classRef, error) {
		name, err := in.ReadString()
		return classRef{name}, err
	})
	memberKind = DefineFactored(testSchema, "test.member", func(in *Input, owner ownerRef) (memberRef, error) {
		name, err := in.ReadString()
		return memberRef{owner, name}, err
	})
	stampKind = Define(testSchema, "test.stamp", func(in *Input) (stamp, error) {
		var s stamp
		var err error
		if s.Label, err = in.ReadString(); err != nil {
			return s, err
		}
		s.Hash, err = in.ReadRawUint64()
		return s, err
	})
	looseKind = DefineFactored(testSchema, "test.loose", func(in *Input, key Element) (looseMember, error) {
		name, err := in.ReadString()
		return looseMember{key, name}, err
	})
	listKeyKind = Define(testSchema, "test.listkey", func(in *Input) (listKey, error) {
		names, err := in.ReadStrings()
		return listKey{names}, err
	})
)

func (r ownerRef) WriteFields(out *Output) error { return out.WriteString(r.Name) }

func (r classRef) WriteFields(out *Output) error { return out.WriteString(r.Name) }
func (r classRef) ElementOwner() Element         { return ownerRef{r.Name} }

func (r memberRef) WriteFields(out *Output) error { return out.WriteString(r.Name) }
func (r memberRef) ElementOwner() Element         { return r.Owner }
func (r memberRef) FactorKey() Element            { return r.Owner }

func (s stamp) WriteFields(out *Output) error {
	if err := out.WriteString(s.Label); err != nil {
		return err
	}
	return out.WriteRawUint64(s.Hash)
}

func (m looseMember) WriteFields(out *Output) error { return out.WriteString(m.Name) }
func (m looseMember) FactorKey() Element            { return m.Key }

func (k listKey) WriteFields(out *Output) error { return out.WriteStrings(k.Names) }

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

// expectPanic runs f and requires it to panic with an error wrapping target.
func expectPanic(t testing.TB, target error, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, wanted error wrapping %v", r, target)
		}
	}()
	f()
}

func expectDataError(t testing.TB, err error) *DataError {
	t.Helper()
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T %v, wanted *DataError", err, err)
	}
	return de
}
