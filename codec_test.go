package graphdata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/andreyvit/graphdata/graphdatatest"
)

func writeUsages(s *Session, usages []Usage) []byte {
	return must(Marshal(s, func(out *Output) error {
		return out.WriteUsages(usages)
	}))
}

func readUsages(s *Session, data []byte) []Usage {
	var result []Usage
	ensure(Unmarshal(s, data, func(in *Input) error {
		var err error
		result, err = AppendUsages(in, nil)
		return err
	}))
	return result
}

func TestElement_Layout(t *testing.T) {
	s := NewSession(testSchema)
	data := must(Marshal(s, func(out *Output) error {
		ensure(out.WriteElement(classRef{"A"}))
		return out.WriteElement(classRef{"B"})
	}))
	bytesEq(t, data, expand("@-1 $test.class 00 $A", "@1 $B"))

	var got []Element
	ensure(Unmarshal(NewSession(testSchema), data, func(in *Input) error {
		for range 2 {
			elem, err := in.ReadElement()
			if err != nil {
				return err
			}
			got = append(got, elem)
		}
		return nil
	}))
	if e := []Element{classRef{"A"}, classRef{"B"}}; !reflect.DeepEqual(got, e) {
		t.Fatalf("got %v, wanted %v", got, e)
	}
}

func TestElement_FactoredCarriesKey(t *testing.T) {
	s := NewSession(testSchema)
	data := must(Marshal(s, func(out *Output) error {
		return out.WriteElement(memberRef{ownerRef{"T"}, "m"})
	}))
	bytesEq(t, data, expand("@-1 $test.member 01", "@-2 $test.owner 00 $T", "$m"))

	got := must(readOne[memberRef](NewSession(testSchema), data))
	if e := (memberRef{ownerRef{"T"}, "m"}); got != e {
		t.Fatalf("got %v, wanted %v", got, e)
	}
}

func TestElement_Nil(t *testing.T) {
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		ensure(out.WriteElement(nil))
		var ptr *nodeLike
		return out.WriteElement(ptr)
	}))
	bytesEq(t, data, expand("@0 @0"))

	ensure(Unmarshal(NewSession(testSchema), data, func(in *Input) error {
		for range 2 {
			elem, err := in.ReadElement()
			if err != nil {
				return err
			}
			if elem != nil {
				t.Errorf("ReadElement = %v, wanted nil", elem)
			}
		}
		return nil
	}))
}

type nodeLike struct{}

func (*nodeLike) WriteFields(out *Output) error { return nil }

func TestElement_Unregistered(t *testing.T) {
	out := NewOutput(io.Discard, NewSession(testSchema))
	expectPanic(t, ErrContract, func() {
		_ = out.WriteElement(&nodeLike{})
	})
}

func TestElement_RawHashRoundTrip(t *testing.T) {
	e := stamp{"build", 0xFFFFFFFFFFFFFFFF}
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return out.WriteElement(e)
	}))
	bytesEq(t, data, expand("@-1 $test.stamp 00 $build ff*8"))
	if got := must(readOne[stamp](NewSession(testSchema), data)); got != e {
		t.Fatalf("got %v, wanted %v", got, e)
	}
}

func TestReadElementAs_WrongType(t *testing.T) {
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return out.WriteElement(classRef{"A"})
	}))
	_, err := readOne[ownerRef](NewSession(testSchema), data)
	expectDataError(t, err)
}

func readOne[T Element](s *Session, data []byte) (T, error) {
	var v T
	err := Unmarshal(s, data, func(in *Input) error {
		var err error
		v, err = ReadElementAs[T](in)
		return err
	})
	return v, err
}

func TestUsages_Empty(t *testing.T) {
	s := NewSession(testSchema)
	data := writeUsages(s, nil)
	bytesEq(t, data, expand("@0"))
	if s.Len() != 0 {
		t.Errorf("s.Len() = %d, wanted 0", s.Len())
	}
	if got := readUsages(NewSession(testSchema), data); len(got) != 0 {
		t.Fatalf("got %v, wanted nothing", got)
	}
}

func TestUsages_Single(t *testing.T) {
	data := writeUsages(NewSession(testSchema), []Usage{classRef{"A"}})
	bytesEq(t, data, expand("@1", "@-1 $test.class 00 @1 $A"))

	// no partition overhead beyond the count
	coll := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return WriteElementCollection(out, []classRef{{"A"}})
	}))
	if len(data) != 4+len(coll) {
		t.Errorf("single usage takes %d bytes, wanted %d", len(data), 4+len(coll))
	}

	got := readUsages(NewSession(testSchema), data)
	if e := []Usage{classRef{"A"}}; !reflect.DeepEqual(got, e) {
		t.Fatalf("got %v, wanted %v", got, e)
	}
}

func TestUsages_SingleFactored(t *testing.T) {
	data := writeUsages(NewSession(testSchema), []Usage{memberRef{ownerRef{"T"}, "m"}})
	bytesEq(t, data, expand(
		"@1",
		"@-1 $test.member 01 @1",
		"@-2 $test.owner 00 $T @1 $m",
	))
}

func TestUsages_Mixed(t *testing.T) {
	usages := []Usage{
		memberRef{ownerRef{"T"}, "a"},
		classRef{"X"},
		memberRef{ownerRef{"T"}, "b"},
		memberRef{ownerRef{"U"}, "c"},
	}
	data := writeUsages(NewSession(testSchema), usages)
	bytesEq(t, data, expand(
		"@2",
		"@-1 $test.member 01 @2",
		"  @-2 $test.owner 00 $T @2 $a $b",
		"  @2 $U @1 $c",
		"@-3 $test.class 00 @1 $X",
	))

	got := readUsages(NewSession(testSchema), data)
	graphdatatest.MultisetEq(t, got, usages)
}

func TestUsages_Multiset(t *testing.T) {
	usages := []Usage{
		classRef{"A"},
		memberRef{ownerRef{"T"}, "x"},
		classRef{"B"},
		classRef{"A"},
		memberRef{ownerRef{"T"}, "x"},
		memberRef{ownerRef{"T"}, "y"},
		memberRef{ownerRef{"V"}, "x"},
	}
	data := writeUsages(NewSession(testSchema), usages)
	got := readUsages(NewSession(testSchema), data)
	graphdatatest.MultisetEq(t, got, usages)

	// reordering the input changes nothing that survives the round trip
	perm := []Usage{usages[6], usages[3], usages[1], usages[0], usages[5], usages[2], usages[4]}
	got2 := readUsages(NewSession(testSchema), writeUsages(NewSession(testSchema), perm))
	graphdatatest.MultisetEq(t, got2, got)
}

func TestUsages_SharedFactorKeyWrittenOnce(t *testing.T) {
	const n = 50
	owner := ownerRef{"com.example.VeryLongOwnerClassName"}
	usages := make([]Usage, n)
	for i := range usages {
		usages[i] = memberRef{owner, fmt.Sprintf("m%d", i)}
	}
	grouped := writeUsages(NewSession(testSchema), usages)
	if c := bytes.Count(grouped, []byte(owner.Name)); c != 1 {
		t.Errorf("owner name appears %d times, wanted 1", c)
	}

	separate := must(Marshal(NewSession(testSchema), func(out *Output) error {
		for _, u := range usages {
			if err := out.WriteElement(u); err != nil {
				return err
			}
		}
		return nil
	}))
	if len(grouped) >= len(separate) {
		t.Errorf("grouped encoding takes %d bytes, separate elements %d", len(grouped), len(separate))
	}

	got := readUsages(NewSession(testSchema), grouped)
	graphdatatest.MultisetEq(t, got, usages)
}

func TestUsages_NilUsagePanics(t *testing.T) {
	out := NewOutput(io.Discard, NewSession(testSchema))
	expectPanic(t, ErrContract, func() {
		_ = out.WriteUsages([]Usage{classRef{"A"}, nil})
	})
}

func TestUsages_Truncated(t *testing.T) {
	usages := []Usage{
		memberRef{ownerRef{"T"}, "a"},
		classRef{"X"},
		memberRef{ownerRef{"U"}, "c"},
	}
	data := writeUsages(NewSession(testSchema), usages)
	for i := range len(data) {
		in := NewInput(bytes.NewReader(data[:i]), NewSession(testSchema))
		_, err := AppendUsages(in, nil)
		if err != io.ErrUnexpectedEOF {
			t.Errorf("prefix of %d bytes: err = %v, wanted io.ErrUnexpectedEOF", i, err)
		}
	}
}

func TestUsages_TruncatedBytes(t *testing.T) {
	data := writeUsages(NewSession(testSchema), []Usage{classRef{"X"}, memberRef{ownerRef{"U"}, "c"}})
	for i := range len(data) {
		_, err := AppendUsages(NewBytesInput(data[:i], NewSession(testSchema)), nil)
		if err == nil {
			t.Fatalf("prefix of %d bytes: no error", i)
		}
		if err != io.ErrUnexpectedEOF && !IsDataError(err) {
			t.Errorf("prefix of %d bytes: err = %v, wanted truncation or DataError", i, err)
		}
	}
}

func TestCollection_PreservesOrder(t *testing.T) {
	items := []classRef{{"C"}, {"A"}, {"B"}, {"A"}}
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return WriteElementCollection(out, items)
	}))
	bytesEq(t, data, expand("@-1 $test.class 00 @4 $C $A $B $A"))

	var got []classRef
	ensure(Unmarshal(NewSession(testSchema), data, func(in *Input) error {
		var err error
		got, err = AppendElementCollection(in, got)
		return err
	}))
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("got %v, wanted %v", got, items)
	}
}

func TestCollection_Empty(t *testing.T) {
	s := NewSession(testSchema)
	data := must(Marshal(s, func(out *Output) error {
		return WriteElementCollection[classRef](out, nil)
	}))
	bytesEq(t, data, expand("@0"))
	if s.Len() != 0 {
		t.Errorf("s.Len() = %d, wanted 0", s.Len())
	}
}

func TestCollection_Factored(t *testing.T) {
	items := []memberRef{
		{ownerRef{"T"}, "a"},
		{ownerRef{"U"}, "b"},
		{ownerRef{"T"}, "c"},
	}
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return WriteElementCollection(out, items)
	}))
	bytesEq(t, data, expand(
		"@-1 $test.member 01 @2",
		"@-2 $test.owner 00 $T @2 $a $c",
		"@2 $U @1 $b",
	))

	var got []memberRef
	ensure(Unmarshal(NewSession(testSchema), data, func(in *Input) error {
		return ReadElementCollection(in, func(m memberRef) {
			got = append(got, m)
		})
	}))
	graphdatatest.MultisetEq(t, got, items)
}

func TestCollection_Heterogeneous(t *testing.T) {
	out := NewOutput(io.Discard, NewSession(testSchema))
	expectPanic(t, ErrContract, func() {
		_ = WriteElementCollection(out, []Element{classRef{"A"}, ownerRef{"B"}})
	})
	expectPanic(t, ErrContract, func() {
		_ = WriteElementCollection(out, []Element{classRef{"A"}, nil})
	})
}

func TestCollection_InterfaceKeys(t *testing.T) {
	items := []looseMember{
		{ownerRef{"T"}, "a"},
		{classRef{"T"}, "b"},
		{ownerRef{"T"}, "c"},
	}
	data := must(Marshal(NewSession(testSchema), func(out *Output) error {
		return WriteElementCollection(out, items)
	}))
	// ownerRef{T} and classRef{T} are different keys
	bytesEq(t, data, expand(
		"@-1 $test.loose 01 @2",
		"@-2 $test.owner 00 $T @2 $a $c",
		"@-3 $test.class 00 $T @1 $b",
	))
	var got []looseMember
	ensure(Unmarshal(NewSession(testSchema), data, func(in *Input) error {
		var err error
		got, err = AppendElementCollection(in, got)
		return err
	}))
	graphdatatest.MultisetEq(t, got, items)
}

func TestInput_CountBeyondDataFromReader(t *testing.T) {
	// without a known length, running out is still truncation
	data := expand("@-1 $test.class 00 @1000 $A")
	in := NewInput(bytes.NewReader(data), NewSession(testSchema))
	err := in.readCollection(func(Element) error { return nil })
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("err = %v, wanted io.ErrUnexpectedEOF", err)
	}
}

type boxKey struct {
	V any
}

func (boxKey) WriteFields(out *Output) error { return nil }

func TestCollection_NonComparableKeyPanics(t *testing.T) {
	out := NewOutput(io.Discard, NewSession(testSchema))
	expectPanic(t, ErrContract, func() {
		_ = WriteElementCollection(out, []looseMember{{boxKey{[]string{"a"}}, "x"}})
	})
	expectPanic(t, ErrContract, func() {
		_ = WriteElementCollection(out, []looseMember{{listKey{[]string{"a"}}, "x"}})
	})
	expectPanic(t, ErrContract, func() {
		_ = WriteElementCollection(out, []looseMember{{nil, "x"}})
	})
}

func TestSession_IDsSurviveAcrossCalls(t *testing.T) {
	ws := NewSession(testSchema)
	first := writeUsages(ws, []Usage{classRef{"A"}})
	second := writeUsages(ws, []Usage{classRef{"B"}})
	bytesEq(t, second, expand("@1 @1 @1 $B"))

	if id := ws.IDOf(classKind); id != 1 {
		t.Errorf("IDOf(classKind) = %d, wanted 1", id)
	}
	if id := ws.IDOf(stampKind); id != 0 {
		t.Errorf("IDOf(stampKind) = %d, wanted 0", id)
	}

	rs := NewSession(testSchema)
	a := readUsages(rs, first)
	b := readUsages(rs, second)
	if e := []Usage{classRef{"A"}}; !reflect.DeepEqual(a, e) {
		t.Errorf("first = %v, wanted %v", a, e)
	}
	if e := []Usage{classRef{"B"}}; !reflect.DeepEqual(b, e) {
		t.Errorf("second = %v, wanted %v", b, e)
	}

	// a fresh reading session has never seen id 1
	err := Unmarshal(NewSession(testSchema), second, func(in *Input) error {
		_, err := AppendUsages(in, nil)
		return err
	})
	de := expectDataError(t, err)
	if de.Off != 8 {
		t.Errorf("DataError.Off = %d, wanted 8", de.Off)
	}
}

func TestSession_ConcurrentIDs(t *testing.T) {
	s := NewSession(testSchema)
	kinds := testSchema.Kinds()

	var wg sync.WaitGroup
	results := make([][]int32, 8)
	for g := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, k := range kinds {
				id, _ := s.idFor(k)
				results[g] = append(results[g], id)
			}
		}()
	}
	wg.Wait()

	if s.Len() != len(kinds) {
		t.Fatalf("s.Len() = %d, wanted %d", s.Len(), len(kinds))
	}
	seen := make(map[int32]bool)
	for i, k := range kinds {
		id := s.IDOf(k)
		if id < 1 || int(id) > len(kinds) || seen[id] {
			t.Errorf("IDOf(%v) = %d, wanted a unique id in 1..%d", k, id, len(kinds))
		}
		seen[id] = true
		for g := range results {
			if results[g][i] != id {
				t.Errorf("goroutine %d saw id %d for %v, wanted %d", g, results[g][i], k, id)
			}
		}
	}
}

func TestSession_ConcurrentOutputs(t *testing.T) {
	s := NewSession(testSchema)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf bytes.Buffer
			out := NewOutput(&buf, s)
			ensure(out.WriteUsages([]Usage{classRef{fmt.Sprint(i)}, memberRef{ownerRef{"T"}, "m"}}))
		}()
	}
	wg.Wait()
	if s.Len() != 3 {
		t.Fatalf("s.Len() = %d, wanted 3", s.Len())
	}
}

func TestInput_CorruptTypeRefs(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown id", "@5 $A"},
		{"unknown kind name", "@-1 $test.nope 00"},
		{"declaration out of sequence", "@-2 $test.class 00 $A"},
		{"factored flag mismatch", "@-1 $test.class 01 $A"},
		{"plain flag on factored kind", "@-1 $test.member 00 $A"},
		{"unknown flags", "@-1 $test.class 02 $A"},
		{"duplicate declaration", "@-1 $test.class 00 $A @-2 $test.class 00 $B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := expand(tt.data)
			in := NewBytesInput(data, NewSession(testSchema))
			var err error
			for err == nil && in.Remaining() > 0 {
				_, err = in.ReadElement()
			}
			de := expectDataError(t, err)
			if !bytes.Equal(de.Data, data) {
				t.Errorf("DataError.Data = %x, wanted the whole input", de.Data)
			}
		})
	}
}

func TestInput_CorruptCollections(t *testing.T) {
	tests := []struct {
		name   string
		usages bool
		data   string
	}{
		{"negative element count", false, "@-1 $test.class 00 @-1"},
		{"negative group count", false, "@-1 $test.member 01 @-1"},
		{"group count beyond data", false, "@-1 $test.member 01 @1000"},
		{"broken factor reference", false, "@-1 $test.member 01 @1 @-2 $test.class 00 $T @1 $m"},
		{"nil factor key", false, "@-1 $test.member 01 @1 @0 @1 $m"},
		{"element count beyond data", false, "@-1 $test.class 00 @1000 $A"},
		{"member count beyond data", false, "@-1 $test.member 01 @1 @-2 $test.owner 00 $T @1000 $m"},
		{"negative partition count", true, "@-2"},
		{"partition count beyond data", true, "@3 @0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewBytesInput(expand(tt.data), NewSession(testSchema))
			var err error
			if tt.usages {
				_, err = AppendUsages(in, nil)
			} else {
				err = in.readCollection(func(Element) error { return nil })
			}
			expectDataError(t, err)
		})
	}
}

func TestDataError_Message(t *testing.T) {
	data := expand("@5 $A")
	_, err := NewBytesInput(data, NewSession(testSchema)).ReadElement()
	de := expectDataError(t, err)
	if de.Off != 4 {
		t.Errorf("DataError.Off = %d, wanted 4", de.Off)
	}
	if !IsDataError(fmt.Errorf("wrapped: %w", err)) {
		t.Errorf("IsDataError does not see through wrapping")
	}
	if IsDataError(io.ErrUnexpectedEOF) || IsDataError(nil) {
		t.Errorf("IsDataError reports non-data errors")
	}
	msg := err.Error()
	if !bytes.Contains([]byte(msg), []byte("unknown element type id 5")) {
		t.Errorf("message %q lacks the reason", msg)
	}
	if errors.Unwrap(err) != nil {
		t.Errorf("Unwrap = %v, wanted nil", errors.Unwrap(err))
	}
}
