package graphdata

import (
	"reflect"
	"sort"
	"sync"
)

var factoredElementType = reflect.TypeFor[FactoredElement]()

// Schema is the catalog of element kinds that may appear in a stream. Kinds
// are defined once, typically from package-level vars, and the schema is then
// shared by any number of sessions.
type Schema struct {
	mu            sync.RWMutex
	kindsByName   map[string]*Kind
	kindsByGoType map[reflect.Type]*Kind
}

func NewSchema() *Schema {
	return &Schema{
		kindsByName:   make(map[string]*Kind),
		kindsByGoType: make(map[reflect.Type]*Kind),
	}
}

// Kind describes one concrete element type: its stable name (written to the
// stream on first use in a session), its Go type and how to build instances.
type Kind struct {
	name     string
	typ      reflect.Type
	factored bool
	keyType  reflect.Type

	read       func(in *Input) (Element, error)
	readMember func(in *Input, key Element) (Element, error)
}

func (k *Kind) Name() string         { return k.name }
func (k *Kind) String() string       { return k.name }
func (k *Kind) GoType() reflect.Type { return k.typ }
func (k *Kind) IsFactored() bool     { return k.factored }

// Define registers a plain (non-factored) element kind. read must consume
// exactly the bytes written by T.WriteFields.
func Define[T Element](scm *Schema, name string, read func(in *Input) (T, error)) *Kind {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Interface {
		contractViolation("Define(%s): %v is an interface, need a concrete type", name, typ)
	}
	if typ.Implements(factoredElementType) {
		contractViolation("Define(%s): %v implements FactoredElement, use DefineFactored", name, typ)
	}
	kind := &Kind{
		name: name,
		typ:  typ,
		read: func(in *Input) (Element, error) {
			return read(in)
		},
	}
	scm.add(kind)
	return kind
}

// DefineFactored registers a factored element kind whose factor key has Go
// type K. read receives the already decoded key and must consume exactly the
// member-specific bytes written by T.WriteFields.
func DefineFactored[T FactoredElement, K Element](scm *Schema, name string, read func(in *Input, key K) (T, error)) *Kind {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Interface {
		contractViolation("DefineFactored(%s): %v is an interface, need a concrete type", name, typ)
	}
	keyType := reflect.TypeFor[K]()
	if keyType.Kind() != reflect.Interface && !keyType.Comparable() {
		contractViolation("DefineFactored(%s): factor key type %v is not comparable", name, keyType)
	}
	kind := &Kind{
		name:     name,
		typ:      typ,
		factored: true,
		keyType:  keyType,
		readMember: func(in *Input, key Element) (Element, error) {
			k, ok := key.(K)
			if !ok {
				return nil, in.dataErrf(nil, "broken factor reference: %s expects key %v, got %T", name, keyType, key)
			}
			return read(in, k)
		},
	}
	kind.read = func(in *Input) (Element, error) {
		key, err := in.ReadElement()
		if err != nil {
			return nil, err
		}
		return kind.readMember(in, key)
	}
	scm.add(kind)
	return kind
}

func (scm *Schema) add(kind *Kind) {
	if kind.name == "" {
		contractViolation("element kind for %v has an empty name", kind.typ)
	}
	scm.mu.Lock()
	defer scm.mu.Unlock()
	if scm.kindsByName == nil {
		scm.kindsByName = make(map[string]*Kind)
		scm.kindsByGoType = make(map[reflect.Type]*Kind)
	}
	if prev := scm.kindsByName[kind.name]; prev != nil {
		contractViolation("element kind %q is already defined for %v, cannot use it for %v", kind.name, prev.typ, kind.typ)
	}
	if prev := scm.kindsByGoType[kind.typ]; prev != nil {
		contractViolation("%v is already defined as element kind %q, cannot redefine as %q", kind.typ, prev.name, kind.name)
	}
	scm.kindsByName[kind.name] = kind
	scm.kindsByGoType[kind.typ] = kind
}

// KindNamed returns the kind with the given name, or nil.
func (scm *Schema) KindNamed(name string) *Kind {
	scm.mu.RLock()
	defer scm.mu.RUnlock()
	return scm.kindsByName[name]
}

// KindOf returns the kind of the given element. Elements of types that were
// never defined in this schema cannot be written, so this panics for them.
func (scm *Schema) KindOf(elem Element) *Kind {
	typ := reflect.TypeOf(elem)
	scm.mu.RLock()
	kind := scm.kindsByGoType[typ]
	scm.mu.RUnlock()
	if kind == nil {
		contractViolation("no element kind defined for %v", typ)
	}
	return kind
}

// Kinds returns all defined kinds sorted by name.
func (scm *Schema) Kinds() []*Kind {
	scm.mu.RLock()
	result := make([]*Kind, 0, len(scm.kindsByName))
	for _, k := range scm.kindsByName {
		result = append(result, k)
	}
	scm.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].name < result[j].name
	})
	return result
}

func (k *Kind) checkFactorKey(key Element) {
	if key == nil {
		contractViolation("%s: FactorKey returned nil", k.name)
	}
	if !reflect.TypeOf(key).Comparable() {
		contractViolation("%s: factor key %T is not comparable", k.name, key)
	}
}

func (k *Kind) asFactored(elem Element) FactoredElement {
	fe, ok := elem.(FactoredElement)
	if !ok {
		contractViolation("%s is registered as factored but %T does not implement FactoredElement", k.name, elem)
	}
	return fe
}
