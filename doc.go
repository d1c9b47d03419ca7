/*
Package graphdata persists a heterogeneous, polymorphic graph of
build-dependency elements (nodes, edges, usage records) as a compact binary
stream and reads it back.

We implement:

1. Element kinds, defined once in a Schema with Define or DefineFactored. The
codec itself never enumerates concrete types; adding a kind touches nothing
else.

2. Sessions, the per-stream type registry: each kind gets a small sequential
id the first time a session writes it, and every later occurrence costs four
bytes.

3. Factor sharing: elements of a factored kind that report an equal factor key
(say, the class owning a method usage) are grouped, and the key is written
once per group instead of once per element.

4. The usage multiplexer: a mixed bag of usages is partitioned by kind and
written one collection per kind. Only the multiset survives; order does not.

# Failure classes

I/O failures, including truncation (io.ErrUnexpectedEOF), are returned as is.
Bytes that violate the format come back as *DataError. Programming mistakes
(unregistered types, heterogeneous collections, unframed raw writes) panic
with an error wrapping ErrContract or ErrUnsupported.

# Binary encoding

All fixed-width integers are big-endian. Counts are fixed 4-byte ints.
Strings and byte runs are a uvarint length followed by the bytes. Raw 64-bit
values are 8 bytes, verbatim.

**Type ref** (fixed int32):
 - 0: nil element, or an empty collection;
 - n > 0: kind previously declared in this session as id n;
 - n < 0: declaration of id -n, followed by the kind name (string) and a flags
   byte (bit 0 = factored). Ids are declared strictly in sequence starting at 1.

**Element**: type ref, then the factor key element (factored kinds only), then
the element's own fields.

**Collection**: type ref, then for plain kinds a count and each element's
fields; for factored kinds a group count and, per group, the key element, a
member count and each member's own fields.

**Usages**: partition count, then one collection per partition.

No format version is written at this layer. Callers that need one write it
before handing the stream to the codec; package store does.
*/
package graphdata
