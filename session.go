package graphdata

import (
	"sync"
)

// Session is the type registry of one serialization (or deserialization)
// session: a bijection between element kinds and small integer ids, fixed at
// first use. Every Output and Input bound to the same session shares it, so a
// kind is declared in the stream only the first time the session sees it.
//
// Streams produced under one session form a single logical stream: a reader
// must consume them in the order they were written, with one reading session.
// Ids are not stable across sessions and must never be persisted on their
// own.
//
// A Session is safe for concurrent use.
type Session struct {
	schema *Schema

	mu    sync.Mutex
	ids   map[*Kind]int32
	kinds []*Kind // kinds[id-1]
}

func NewSession(scm *Schema) *Session {
	if scm == nil {
		panic("graphdata: nil schema")
	}
	return &Session{
		schema: scm,
		ids:    make(map[*Kind]int32),
	}
}

func (s *Session) Schema() *Schema {
	return s.schema
}

// Len returns the number of kinds assigned an id so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kinds)
}

// IDOf returns the id assigned to kind in this session, or 0.
func (s *Session) IDOf(kind *Kind) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[kind]
}

// idFor returns the id of kind, assigning the next sequential id on first
// use. isNew tells the writer to emit a declaration.
func (s *Session) idFor(kind *Kind) (id int32, isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[kind]; ok {
		return id, false
	}
	s.kinds = append(s.kinds, kind)
	id = int32(len(s.kinds))
	s.ids[kind] = id
	return id, true
}

// declare records a kind declared by the stream under the given id. The
// stream must declare ids sequentially, and each kind only once.
func (s *Session) declare(in *Input, id int32, name string, factored bool) (*Kind, error) {
	kind := s.schema.KindNamed(name)
	if kind == nil {
		return nil, in.dataErrf(nil, "unknown element kind %q declared as id %d", name, id)
	}
	if kind.factored != factored {
		return nil, in.dataErrf(nil, "element kind %q declared with factored=%v, but schema says factored=%v", name, factored, kind.factored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if want := int32(len(s.kinds)) + 1; id != want {
		return nil, in.dataErrf(nil, "element kind %q declared as id %d, expected next id %d", name, id, want)
	}
	if prev, ok := s.ids[kind]; ok {
		return nil, in.dataErrf(nil, "element kind %q declared again as id %d, already has id %d", name, id, prev)
	}
	s.kinds = append(s.kinds, kind)
	s.ids[kind] = id
	return kind, nil
}

// kindFor is the inverse lookup used on the read path.
func (s *Session) kindFor(in *Input, id int32) (*Kind, error) {
	s.mu.Lock()
	var kind *Kind
	if id > 0 && int(id) <= len(s.kinds) {
		kind = s.kinds[id-1]
	}
	s.mu.Unlock()
	if kind == nil {
		return nil, in.dataErrf(nil, "unknown element type id %d", id)
	}
	return kind, nil
}
