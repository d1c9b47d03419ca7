// Package graph defines the element kinds of a JVM-style build dependency
// graph: node references, usage records, class nodes, edges and file sources.
// All kinds are registered in Schema.
package graph

import (
	"github.com/andreyvit/graphdata"
)

// NodeID references a graph node (a class, by its JVM internal name). It is
// the factor key shared by member usages and edges.
type NodeID struct {
	Name string
}

func (id NodeID) String() string { return id.Name }

func (id NodeID) WriteFields(out *graphdata.Output) error {
	return out.WriteString(id.Name)
}

func readNodeID(in *graphdata.Input) (NodeID, error) {
	name, err := in.ReadString()
	return NodeID{name}, err
}

// ModuleID references a JPMS module.
type ModuleID struct {
	Name string
}

func (id ModuleID) String() string { return id.Name }

func (id ModuleID) WriteFields(out *graphdata.Output) error {
	return out.WriteString(id.Name)
}

func readModuleID(in *graphdata.Input) (ModuleID, error) {
	name, err := in.ReadString()
	return ModuleID{name}, err
}
