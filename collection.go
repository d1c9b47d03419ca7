package graphdata

import (
	"runtime"
	"strings"
)

// Smallest encodings, used to sanity-check counts against the data left.
const (
	minTypeRefSize = 4
	minGroupSize   = minTypeRefSize + 4 // factor key ref + member count
)

// factorGroups partitions factored elements by factor key, remembering the
// order in which distinct keys were first seen.
type factorGroups struct {
	index  map[Element]int
	groups []factorGroup
}

type factorGroup struct {
	key     Element
	members []Element
}

// add panics with ErrContract if key is not hashable, which Comparable cannot
// rule out for keys with interface fields.
func (fg *factorGroups) add(kind *Kind, key Element, elem Element) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(runtime.Error); ok && strings.Contains(re.Error(), "unhashable") {
				contractViolation("%s: factor key %T is not hashable: %v", kind.name, key, re)
			}
			panic(r)
		}
	}()
	if i, ok := fg.index[key]; ok {
		fg.groups[i].members = append(fg.groups[i].members, elem)
		return
	}
	if fg.index == nil {
		fg.index = make(map[Element]int)
	}
	fg.index[key] = len(fg.groups)
	fg.groups = append(fg.groups, factorGroup{key: key, members: []Element{elem}})
}

// writeCollection writes a non-empty homogeneous collection of kind. The
// factored flag is looked up once for the whole collection.
//
// Layout: type ref, then either
//
//	plain:    count, fields*
//	factored: groupCount, (key element, memberCount, memberFields*)*
func (out *Output) writeCollection(kind *Kind, elems []Element) error {
	if err := out.writeTypeRef(kind); err != nil {
		return err
	}

	if !kind.factored {
		if err := out.WriteInt(len(elems)); err != nil {
			return err
		}
		for _, elem := range elems {
			if err := elem.WriteFields(out); err != nil {
				return err
			}
		}
		return nil
	}

	var fg factorGroups
	for _, elem := range elems {
		key := kind.asFactored(elem).FactorKey()
		kind.checkFactorKey(key)
		fg.add(kind, key, elem)
	}
	if err := out.WriteInt(len(fg.groups)); err != nil {
		return err
	}
	for _, g := range fg.groups {
		if err := out.WriteElement(g.key); err != nil {
			return err
		}
		if err := out.WriteInt(len(g.members)); err != nil {
			return err
		}
		for _, elem := range g.members {
			if err := elem.WriteFields(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// readCollection reads one collection written by writeCollection (or the nil
// type ref standing for an empty one) and pushes every element.
func (in *Input) readCollection(push func(Element) error) error {
	kind, err := in.readTypeRef()
	if err != nil {
		return err
	}
	if kind == nil {
		return nil
	}

	if !kind.factored {
		n, err := in.ReadCount(0)
		if err != nil {
			return err
		}
		for range n {
			elem, err := kind.read(in)
			if err != nil {
				return in.overshoot(err, n)
			}
			if err := push(elem); err != nil {
				return err
			}
		}
		return nil
	}

	groupCount, err := in.ReadCount(minGroupSize)
	if err != nil {
		return err
	}
	for range groupCount {
		key, err := in.ReadElement()
		if err != nil {
			return err
		}
		if key == nil {
			return in.dataErrf(nil, "broken factor reference: nil factor key in %s group", kind.name)
		}
		n, err := in.ReadCount(0)
		if err != nil {
			return err
		}
		for range n {
			elem, err := kind.readMember(in, key)
			if err != nil {
				return in.overshoot(err, n)
			}
			if err := push(elem); err != nil {
				return err
			}
		}
	}
	return nil
}
