// Package store keeps dependency-graph records in a bbolt file, one record per
// source file, each encoded as a self-contained graphdata stream.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/andreyvit/graphdata"
	"github.com/andreyvit/graphdata/graph"
	"go.etcd.io/bbolt"
)

const recordsBucket = "sources"

type Options struct {
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool
	InMemory  bool // ignore path and keep everything in memory
	ReadOnly  bool
	MmapSize  int
	Timeout   time.Duration
}

// Index is an open record store. It is safe for concurrent use; bbolt
// serializes writers.
type Index struct {
	st       storage
	schema   *graphdata.Schema
	logger   *slog.Logger
	verbose  bool
	readOnly bool
	context  context.Context

	FlushCount   atomic.Uint64
	LoadCount    atomic.Uint64
	CorruptCount atomic.Uint64
}

// Open opens (creating if needed) the index at path. A nil scm means
// graph.Schema.
func Open(path string, scm *graphdata.Schema, opt Options) (*Index, error) {
	if scm == nil {
		scm = graph.Schema
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	var st storage
	if opt.InMemory {
		st = newMemStorage()
	} else {
		bopt := *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 256
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}
		if opt.Timeout != 0 {
			bopt.Timeout = opt.Timeout
		}
		bopt.ReadOnly = opt.ReadOnly

		bdb, err := bbolt.Open(path, 0666, &bopt)
		if err != nil {
			return nil, fmt.Errorf("graphdata/store: %w", err)
		}
		st = newBoltStorage(bdb)
	}

	ix := &Index{
		st:       st,
		schema:   scm,
		logger:   opt.Logger,
		verbose:  opt.Verbose,
		readOnly: opt.ReadOnly,
		context:  context.Background(),
	}
	if !opt.ReadOnly {
		err := ix.update(func(tx storageTx) error {
			_, err := tx.CreateBucket(recordsBucket)
			return err
		})
		if err != nil {
			st.Close()
			return nil, err
		}
	}
	if ix.verbose {
		ix.logger.LogAttrs(ix.context, slog.LevelDebug, "store: opened", slog.String("path", path), slog.Bool("read_only", opt.ReadOnly), slog.Bool("in_memory", opt.InMemory))
	}
	return ix, nil
}

func (ix *Index) Schema() *graphdata.Schema {
	return ix.schema
}

func (ix *Index) Close() error {
	if err := ix.st.Close(); err != nil {
		return fmt.Errorf("graphdata/store: closing: %w", err)
	}
	return nil
}

func (ix *Index) view(f func(tx storageTx) error) error {
	tx, err := ix.st.BeginTx(false)
	if err != nil {
		return fmt.Errorf("graphdata/store: %w", err)
	}
	defer tx.Rollback()
	return f(tx)
}

func (ix *Index) update(f func(tx storageTx) error) error {
	if ix.readOnly {
		return fmt.Errorf("graphdata/store: index is read-only")
	}
	tx, err := ix.st.BeginTx(true)
	if err != nil {
		return fmt.Errorf("graphdata/store: %w", err)
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graphdata/store: commit: %w", err)
	}
	return nil
}

// Flush stores rec under rec.Source.Path, replacing any previous record for
// that source.
func (ix *Index) Flush(rec *Record) error {
	key := rec.Source.Path
	if key == "" {
		return fmt.Errorf("graphdata/store: record has no source path")
	}
	data, err := encodeRecord(ix.schema, rec)
	if err != nil {
		return fmt.Errorf("graphdata/store: encoding %q: %w", key, err)
	}
	err = ix.update(func(tx storageTx) error {
		b, err := tx.CreateBucket(recordsBucket)
		if err != nil {
			return fmt.Errorf("graphdata/store: %w", err)
		}
		if err := b.Put([]byte(key), data); err != nil {
			return fmt.Errorf("graphdata/store: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	ix.FlushCount.Add(1)
	if ix.verbose {
		ix.logger.LogAttrs(ix.context, slog.LevelDebug, "store: flushed", slog.String("source", key), slog.Int("size", len(data)), slog.Int("nodes", len(rec.Nodes)), slog.Int("edges", len(rec.Edges)), slog.Int("usages", len(rec.Usages)))
	}
	return nil
}

// Load returns the record stored for source, or ErrNotFound.
func (ix *Index) Load(source string) (*Record, error) {
	var rec *Record
	err := ix.view(func(tx storageTx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(source))
		if data == nil {
			return ErrNotFound
		}
		var err error
		rec, err = ix.decode(source, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	ix.LoadCount.Add(1)
	if ix.verbose {
		ix.logger.LogAttrs(ix.context, slog.LevelDebug, "store: loaded", slog.String("source", source), slog.Int("nodes", len(rec.Nodes)))
	}
	return rec, nil
}

func (ix *Index) decode(key string, data []byte) (*Record, error) {
	rec, err := decodeRecord(ix.schema, key, data)
	if err != nil {
		ix.CorruptCount.Add(1)
		ix.logger.LogAttrs(ix.context, slog.LevelWarn, "store: corrupted record", slog.String("source", key), slog.Int("size", len(data)), slog.Any("err", err))
		return nil, err
	}
	return rec, nil
}

// Delete removes the record for source. Deleting a missing record is not an
// error.
func (ix *Index) Delete(source string) error {
	return ix.update(func(tx storageTx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(source)); err != nil {
			return fmt.Errorf("graphdata/store: %w", err)
		}
		return nil
	})
}

// Sources returns the paths of all stored records in sorted order.
func (ix *Index) Sources() ([]string, error) {
	return ix.SourcesWithPrefix("")
}

// SourcesWithPrefix returns the sorted paths of stored records that start
// with prefix.
func (ix *Index) SourcesWithPrefix(prefix string) ([]string, error) {
	var result []string
	err := ix.view(func(tx storageTx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		pfx := []byte(prefix)
		for k, _ := c.Seek(pfx); k != nil && bytes.HasPrefix(k, pfx); k, _ = c.Next() {
			result = append(result, string(k))
		}
		return nil
	})
	return result, err
}

// ForEach decodes every record in source order and calls f. It stops at the
// first error, including a *RecordError for a corrupted record. f runs inside
// a read transaction and must not call Flush or Delete.
func (ix *Index) ForEach(f func(rec *Record) error) error {
	return ix.ForEachRaw(func(source string, data []byte) error {
		rec, err := ix.decode(source, data)
		if err != nil {
			return err
		}
		return f(rec)
	})
}

// ForEachRaw calls f with the stored bytes of every record. data is only
// valid during the call.
func (ix *Index) ForEachRaw(f func(source string, data []byte) error) error {
	return ix.view(func(tx storageTx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := f(string(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Verify decodes every record, returning the number of good ones and the
// errors for the bad ones.
func (ix *Index) Verify() (ok int, bad []*RecordError, err error) {
	err = ix.ForEachRaw(func(source string, data []byte) error {
		if _, err := ix.decode(source, data); err != nil {
			var re *RecordError
			if errors.As(err, &re) {
				bad = append(bad, re)
				return nil
			}
			return err
		}
		ok++
		return nil
	})
	return ok, bad, err
}

type Stats struct {
	Records   int
	DataBytes int64
	FileSize  int64

	Flushes  uint64
	Loads    uint64
	Corrupts uint64
}

func (ix *Index) Stats() (Stats, error) {
	var s Stats
	err := ix.view(func(tx storageTx) error {
		s.FileSize = tx.Size()
		if b := tx.Bucket(recordsBucket); b != nil {
			bs := b.Stats()
			s.Records = bs.KeyN
			s.DataBytes = bs.LeafInuse
		}
		return nil
	})
	s.Flushes = ix.FlushCount.Load()
	s.Loads = ix.LoadCount.Load()
	s.Corrupts = ix.CorruptCount.Load()
	return s, err
}
