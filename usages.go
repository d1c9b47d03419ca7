package graphdata

import (
	"reflect"
)

// WriteUsages writes a multiset of usages of any mix of kinds, grouping them
// by kind (and, for factored kinds, by factor key). Only the multiset
// survives a round trip: the original interleaving of kinds and keys does not.
//
// Layout: partitionCount, then one collection per partition. A single usage
// skips the partitioning work but takes the same bytes as a one-partition
// encoding: count 1, then its collection.
func (out *Output) WriteUsages(usages []Usage) error {
	switch len(usages) {
	case 0:
		return out.WriteInt32(0)
	case 1:
		// no partitioning needed for the overwhelmingly common case
		if err := out.WriteInt32(1); err != nil {
			return err
		}
		u := usages[0]
		if isNilElement(u) {
			contractViolation("WriteUsages: nil usage")
		}
		return out.writeCollection(out.session.schema.KindOf(u), []Element{u})
	}

	var partitions []usagePartition
	index := make(map[reflect.Type]int)
	for _, u := range usages {
		if isNilElement(u) {
			contractViolation("WriteUsages: nil usage")
		}
		typ := reflect.TypeOf(u)
		if i, ok := index[typ]; ok {
			partitions[i].elems = append(partitions[i].elems, u)
			continue
		}
		index[typ] = len(partitions)
		partitions = append(partitions, usagePartition{
			kind:  out.session.schema.KindOf(u),
			elems: []Element{u},
		})
	}

	if err := out.WriteInt(len(partitions)); err != nil {
		return err
	}
	for _, p := range partitions {
		if err := out.writeCollection(p.kind, p.elems); err != nil {
			return err
		}
	}
	return nil
}

type usagePartition struct {
	kind  *Kind
	elems []Element
}

// ReadUsages reads usages written by WriteUsages, pushing each one in
// whatever order the stream holds them.
func (in *Input) ReadUsages(push func(Usage)) error {
	n, err := in.ReadCount(minTypeRefSize)
	if err != nil {
		return err
	}
	for range n {
		err := in.readCollection(func(elem Element) error {
			u, ok := elem.(Usage)
			if !ok {
				return in.dataErrf(nil, "expected a usage, got %T", elem)
			}
			push(u)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendUsages reads usages written by WriteUsages and appends them to dst.
func AppendUsages(in *Input, dst []Usage) ([]Usage, error) {
	err := in.ReadUsages(func(u Usage) {
		dst = append(dst, u)
	})
	return dst, err
}
