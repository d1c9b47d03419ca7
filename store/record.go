package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/andreyvit/graphdata"
	"github.com/andreyvit/graphdata/graph"
	"github.com/cespare/xxhash/v2"
)

// formatVersion is the first byte of every stored record.
const formatVersion byte = 1

const trailerSize = 8

var (
	ErrNotFound = errors.New("graphdata/store: record not found")
	ErrChecksum = errors.New("checksum mismatch")
	ErrVersion  = errors.New("unsupported record format version")
	ErrTooShort = errors.New("record too short")
)

// Record is everything the index knows about one source file.
type Record struct {
	Source graph.FileSource
	Nodes  []*graph.ClassNode
	Edges  []graph.Edge
	Usages []graphdata.Usage
}

// RecordError reports a stored record that cannot be decoded.
type RecordError struct {
	Source string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("graphdata/store: record %q: %v", e.Source, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// encodeRecord produces: version byte, one graphdata stream (source element,
// node collection, edge collection, usages), xxhash64 of all preceding bytes.
// Every record is a stream of its own, so type ids never leak across records.
func encodeRecord(scm *graphdata.Schema, rec *Record) ([]byte, error) {
	buf := make([]byte, 1, 256)
	buf[0] = formatVersion
	buf, err := graphdata.AppendMarshal(buf, graphdata.NewSession(scm), func(out *graphdata.Output) error {
		if err := out.WriteElement(rec.Source); err != nil {
			return err
		}
		if err := graphdata.WriteElementCollection(out, rec.Nodes); err != nil {
			return err
		}
		if err := graphdata.WriteElementCollection(out, rec.Edges); err != nil {
			return err
		}
		return out.WriteUsages(rec.Usages)
	})
	if err != nil {
		return nil, err
	}
	return appendTrailer(buf), nil
}

func appendTrailer(buf []byte) []byte {
	return binary.BigEndian.AppendUint64(buf, xxhash.Sum64(buf))
}

func decodeRecord(scm *graphdata.Schema, key string, data []byte) (*Record, error) {
	if len(data) < 1+trailerSize {
		return nil, &RecordError{key, ErrTooShort}
	}
	if data[0] != formatVersion {
		return nil, &RecordError{key, fmt.Errorf("%w %d", ErrVersion, data[0])}
	}
	n := len(data) - trailerSize
	body := data[:n]
	if sum := binary.BigEndian.Uint64(data[n:]); sum != xxhash.Sum64(body) {
		return nil, &RecordError{key, ErrChecksum}
	}

	rec := new(Record)
	err := graphdata.Unmarshal(graphdata.NewSession(scm), body[1:], func(in *graphdata.Input) error {
		var err error
		if rec.Source, err = graphdata.ReadElementAs[graph.FileSource](in); err != nil {
			return err
		}
		if rec.Nodes, err = graphdata.AppendElementCollection(in, rec.Nodes); err != nil {
			return err
		}
		if rec.Edges, err = graphdata.AppendElementCollection(in, rec.Edges); err != nil {
			return err
		}
		rec.Usages, err = graphdata.AppendUsages(in, nil)
		return err
	})
	if err != nil {
		// bbolt values are only valid until the tx ends
		var de *graphdata.DataError
		if errors.As(err, &de) {
			de.Data = slices.Clone(de.Data)
		}
		return nil, &RecordError{key, err}
	}
	return rec, nil
}
