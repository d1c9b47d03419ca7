package graph

import (
	"github.com/andreyvit/graphdata"
	"github.com/cespare/xxhash/v2"
)

// FileSource is a source file that contributed nodes to the graph. Digest is
// a content hash, written verbatim.
type FileSource struct {
	Path   string
	Digest uint64
}

// DigestOf computes the digest stored in FileSource.Digest.
func DigestOf(content []byte) uint64 {
	return xxhash.Sum64(content)
}

func (src FileSource) WriteFields(out *graphdata.Output) error {
	if err := out.WriteString(src.Path); err != nil {
		return err
	}
	return out.WriteRawUint64(src.Digest)
}

func readFileSource(in *graphdata.Input) (FileSource, error) {
	var src FileSource
	var err error
	if src.Path, err = in.ReadString(); err != nil {
		return src, err
	}
	src.Digest, err = in.ReadRawUint64()
	return src, err
}

// Relation is the meaning of an Edge.
type Relation byte

const (
	Extends Relation = iota + 1
	Implements
	Nests
	DependsOn
)

func (r Relation) String() string {
	switch r {
	case Extends:
		return "extends"
	case Implements:
		return "implements"
	case Nests:
		return "nests"
	case DependsOn:
		return "depends-on"
	default:
		return "unknown"
	}
}

// Edge is a directed relation between two nodes. Edges leaving the same node
// share From as their factor key.
type Edge struct {
	From NodeID
	To   NodeID
	Rel  Relation
}

func (e Edge) FactorKey() graphdata.Element { return e.From }

func (e Edge) WriteFields(out *graphdata.Output) error {
	if err := e.To.WriteFields(out); err != nil {
		return err
	}
	return out.WriteByte(byte(e.Rel))
}

func readEdge(in *graphdata.Input, from NodeID) (Edge, error) {
	to, err := readNodeID(in)
	if err != nil {
		return Edge{}, err
	}
	rel, err := in.ReadByte()
	return Edge{from, to, Relation(rel)}, err
}

// ClassNode is a compiled class together with everything it uses.
type ClassNode struct {
	ID         NodeID
	Flags      int32 // JVM access flags
	Outer      string
	Superclass NodeID
	Interfaces []NodeID
	Usages     []graphdata.Usage
	Attrs      map[string]string
}

func (n *ClassNode) WriteFields(out *graphdata.Output) error {
	if err := n.ID.WriteFields(out); err != nil {
		return err
	}
	if err := out.WriteInt32(n.Flags); err != nil {
		return err
	}
	if err := out.WriteString(n.Outer); err != nil {
		return err
	}
	if err := n.Superclass.WriteFields(out); err != nil {
		return err
	}
	if err := out.WriteByte(sliceFlags(n.Interfaces != nil, n.Usages != nil)); err != nil {
		return err
	}
	err := graphdata.WriteList(out, n.Interfaces, func(out *graphdata.Output, id NodeID) error {
		return id.WriteFields(out)
	})
	if err != nil {
		return err
	}
	if err := out.WriteUsages(n.Usages); err != nil {
		return err
	}
	return out.WriteValue(n.Attrs)
}

func readClassNode(in *graphdata.Input) (*ClassNode, error) {
	n := new(ClassNode)
	var err error
	if n.ID, err = readNodeID(in); err != nil {
		return nil, err
	}
	if n.Flags, err = in.ReadInt32(); err != nil {
		return nil, err
	}
	if n.Outer, err = in.ReadString(); err != nil {
		return nil, err
	}
	if n.Superclass, err = readNodeID(in); err != nil {
		return nil, err
	}
	flags, err := readSliceFlags(in, 2)
	if err != nil {
		return nil, err
	}
	if n.Interfaces, err = graphdata.ReadList(in, readNodeID); err != nil {
		return nil, err
	}
	if n.Usages, err = graphdata.AppendUsages(in, nil); err != nil {
		return nil, err
	}
	if err = in.ReadValue(&n.Attrs); err != nil {
		return nil, err
	}
	n.Interfaces = nonNil(n.Interfaces, flags&1 != 0)
	n.Usages = nonNil(n.Usages, flags&2 != 0)
	return n, nil
}
