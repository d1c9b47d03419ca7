package graphdata

// Element is a persistable unit of dependency-graph data. An element writes
// its own fields; reading is done by the factory registered for its kind.
type Element interface {
	WriteFields(out *Output) error
}

// FactoredElement shares a bulky FactorKey with its siblings. WriteFields of a
// factored element must write only the member-specific fields: the key is
// written once per group by the collection codec and handed back to the
// kind's factory on read.
//
// Factor keys are grouped with ==, so they must be comparable values
// (typically small structs). Pointer keys would group by identity.
type FactoredElement interface {
	Element
	FactorKey() Element
}

// Usage records that some code referenced a symbol owned by ElementOwner.
type Usage interface {
	Element
	ElementOwner() Element
}
