package graph

import (
	"github.com/andreyvit/graphdata"
)

// ClassUsage: the source references class Class.
type ClassUsage struct {
	Class NodeID
}

func (u ClassUsage) ElementOwner() graphdata.Element { return u.Class }

func (u ClassUsage) WriteFields(out *graphdata.Output) error {
	return u.Class.WriteFields(out)
}

func readClassUsage(in *graphdata.Input) (ClassUsage, error) {
	id, err := readNodeID(in)
	return ClassUsage{id}, err
}

// ClassNewUsage: the source instantiates Class.
type ClassNewUsage struct {
	Class NodeID
}

func (u ClassNewUsage) ElementOwner() graphdata.Element { return u.Class }

func (u ClassNewUsage) WriteFields(out *graphdata.Output) error {
	return u.Class.WriteFields(out)
}

func readClassNewUsage(in *graphdata.Input) (ClassNewUsage, error) {
	id, err := readNodeID(in)
	return ClassNewUsage{id}, err
}

type ModuleUsage struct {
	Module ModuleID
}

func (u ModuleUsage) ElementOwner() graphdata.Element { return u.Module }

func (u ModuleUsage) WriteFields(out *graphdata.Output) error {
	return u.Module.WriteFields(out)
}

func readModuleUsage(in *graphdata.Input) (ModuleUsage, error) {
	id, err := readModuleID(in)
	return ModuleUsage{id}, err
}

// AnnotationUsage records an annotation applied by the source, with the
// names of the arguments given explicitly and the targets it was applied to.
// Values holds constant argument values in source form, when known.
type AnnotationUsage struct {
	Class    NodeID
	ArgNames []string
	Targets  []string
	Values   map[string]string
}

func (u *AnnotationUsage) ElementOwner() graphdata.Element { return u.Class }

func (u *AnnotationUsage) WriteFields(out *graphdata.Output) error {
	if err := u.Class.WriteFields(out); err != nil {
		return err
	}
	if err := out.WriteByte(sliceFlags(u.ArgNames != nil, u.Targets != nil)); err != nil {
		return err
	}
	if err := out.WriteStrings(u.ArgNames); err != nil {
		return err
	}
	if err := out.WriteStrings(u.Targets); err != nil {
		return err
	}
	return out.WriteValue(u.Values)
}

func readAnnotationUsage(in *graphdata.Input) (*AnnotationUsage, error) {
	u := new(AnnotationUsage)
	var err error
	if u.Class, err = readNodeID(in); err != nil {
		return nil, err
	}
	flags, err := readSliceFlags(in, 2)
	if err != nil {
		return nil, err
	}
	if u.ArgNames, err = in.ReadStrings(); err != nil {
		return nil, err
	}
	if u.Targets, err = in.ReadStrings(); err != nil {
		return nil, err
	}
	if err = in.ReadValue(&u.Values); err != nil {
		return nil, err
	}
	u.ArgNames = nonNil(u.ArgNames, flags&1 != 0)
	u.Targets = nonNil(u.Targets, flags&2 != 0)
	return u, nil
}

// MethodUsage: the source calls method Name with JVM Descriptor on Owner.
type MethodUsage struct {
	Owner      NodeID
	Name       string
	Descriptor string
}

func (u MethodUsage) ElementOwner() graphdata.Element { return u.Owner }
func (u MethodUsage) FactorKey() graphdata.Element    { return u.Owner }

func (u MethodUsage) WriteFields(out *graphdata.Output) error {
	return writeMember(out, u.Name, u.Descriptor)
}

func readMethodUsage(in *graphdata.Input, owner NodeID) (MethodUsage, error) {
	name, desc, err := readMember(in)
	return MethodUsage{owner, name, desc}, err
}

// FieldUsage: the source reads field Name of Owner.
type FieldUsage struct {
	Owner      NodeID
	Name       string
	Descriptor string
}

func (u FieldUsage) ElementOwner() graphdata.Element { return u.Owner }
func (u FieldUsage) FactorKey() graphdata.Element    { return u.Owner }

func (u FieldUsage) WriteFields(out *graphdata.Output) error {
	return writeMember(out, u.Name, u.Descriptor)
}

func readFieldUsage(in *graphdata.Input, owner NodeID) (FieldUsage, error) {
	name, desc, err := readMember(in)
	return FieldUsage{owner, name, desc}, err
}

// FieldAssignUsage: the source writes field Name of Owner.
type FieldAssignUsage struct {
	Owner      NodeID
	Name       string
	Descriptor string
}

func (u FieldAssignUsage) ElementOwner() graphdata.Element { return u.Owner }
func (u FieldAssignUsage) FactorKey() graphdata.Element    { return u.Owner }

func (u FieldAssignUsage) WriteFields(out *graphdata.Output) error {
	return writeMember(out, u.Name, u.Descriptor)
}

func readFieldAssignUsage(in *graphdata.Input, owner NodeID) (FieldAssignUsage, error) {
	name, desc, err := readMember(in)
	return FieldAssignUsage{owner, name, desc}, err
}

// ImportStaticMemberUsage: `import static Owner.Member`.
type ImportStaticMemberUsage struct {
	Owner  NodeID
	Member string
}

func (u ImportStaticMemberUsage) ElementOwner() graphdata.Element { return u.Owner }
func (u ImportStaticMemberUsage) FactorKey() graphdata.Element    { return u.Owner }

func (u ImportStaticMemberUsage) WriteFields(out *graphdata.Output) error {
	return out.WriteString(u.Member)
}

func readImportStaticMemberUsage(in *graphdata.Input, owner NodeID) (ImportStaticMemberUsage, error) {
	member, err := in.ReadString()
	return ImportStaticMemberUsage{owner, member}, err
}

// LookupNameUsage: the source resolved a simple Name in the scope of Owner,
// whether or not anything was found.
type LookupNameUsage struct {
	Owner NodeID
	Name  string
}

func (u LookupNameUsage) ElementOwner() graphdata.Element { return u.Owner }
func (u LookupNameUsage) FactorKey() graphdata.Element    { return u.Owner }

func (u LookupNameUsage) WriteFields(out *graphdata.Output) error {
	return out.WriteString(u.Name)
}

func readLookupNameUsage(in *graphdata.Input, owner NodeID) (LookupNameUsage, error) {
	name, err := in.ReadString()
	return LookupNameUsage{owner, name}, err
}

func writeMember(out *graphdata.Output, name, desc string) error {
	if err := out.WriteString(name); err != nil {
		return err
	}
	return out.WriteString(desc)
}

func readMember(in *graphdata.Input) (name, desc string, err error) {
	if name, err = in.ReadString(); err != nil {
		return
	}
	desc, err = in.ReadString()
	return
}

// sliceFlags sets bit i when the i-th slice is non-nil, so that an empty
// slice does not come back as nil.
func sliceFlags(present ...bool) byte {
	var flags byte
	for i, p := range present {
		if p {
			flags |= 1 << i
		}
	}
	return flags
}

func readSliceFlags(in *graphdata.Input, n int) (byte, error) {
	flags, err := in.ReadByte()
	if err != nil {
		return 0, err
	}
	if flags>>n != 0 {
		return 0, in.Corruptf("invalid slice flags 0x%02x", flags)
	}
	return flags, nil
}

func nonNil[T any](v []T, present bool) []T {
	if present && v == nil {
		return []T{}
	}
	return v
}
