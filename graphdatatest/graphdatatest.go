// Package graphdatatest helps writing byte-exact tests of graphdata streams.
package graphdatatest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

// Expand turns a compact textual spec into bytes. Elements are separated by
// whitespace; anything after a '/' is a comment.
//
//   - hex digits, with '_' allowed as a separator: 00_00_00_01
//   - #123: uvarint
//   - @123 or @-1: fixed 4-byte big-endian int32
//   - 'text: raw bytes of text
//   - $text: uvarint length followed by text (a graphdata string)
//   - x*N: repeat element x N times
func Expand(specs ...string) []byte {
	var b []byte
	for _, spec := range specs {
		for _, elem := range strings.Fields(spec) {
			base, _, _ := strings.Cut(elem, "/") // comment
			if base == "" {
				continue
			}

			rep := 1
			if i := strings.LastIndexByte(base, '*'); i > 0 {
				var err error
				rep, err = strconv.Atoi(base[i+1:])
				if err != nil {
					panic(fmt.Sprintf("invalid repeat count in element %q", elem))
				}
				base = base[:i]
			}

			chunk, err := appendElement(nil, base)
			if err != nil {
				panic(fmt.Errorf("%w in element %q", err, elem))
			}
			for range rep {
				b = append(b, chunk...)
			}
		}
	}
	return b
}

func appendElement(data []byte, s string) ([]byte, error) {
	if decimal, ok := strings.CutPrefix(s, "#"); ok {
		v, err := strconv.ParseUint(decimal, 10, 64)
		if err != nil {
			return nil, err
		}
		return binary.AppendUvarint(data, v), nil
	} else if decimal, ok := strings.CutPrefix(s, "@"); ok {
		v, err := strconv.ParseInt(decimal, 10, 32)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint32(data, uint32(int32(v))), nil
	} else if alpha, ok := strings.CutPrefix(s, "'"); ok {
		return append(data, alpha...), nil
	} else if str, ok := strings.CutPrefix(s, "$"); ok {
		data = binary.AppendUvarint(data, uint64(len(str)))
		return append(data, str...), nil
	}
	return appendHexDecoding(data, s)
}

func appendHexDecoding(data []byte, hex string) ([]byte, error) {
	const none byte = 0xFF

	prev := none
	for _, b := range []byte(hex) {
		var half byte
		switch b {
		case '_':
			if prev != none {
				data = append(data, prev)
				prev = none
			}
			continue
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			half = b - '0'
		case 'a', 'b', 'c', 'd', 'e', 'f':
			half = b - 'a' + 10
		case 'A', 'B', 'C', 'D', 'E', 'F':
			half = b - 'A' + 10
		default:
			return nil, fmt.Errorf("invalid char '%c'", b)
		}
		if prev == none {
			prev = half
		} else {
			data = append(data, prev<<4|half)
			prev = none
		}
	}
	if prev != none {
		data = append(data, prev)
	}
	return data, nil
}

func HexDump(b []byte, highlightOff int) string {
	var buf strings.Builder
	var off int
	n := len(b)
	for {
		fmt.Fprintf(&buf, "%08x", off)
		if off >= n {
			buf.WriteByte('\n')
			break
		}
		buf.WriteByte(' ')
		for i := range 8 {
			if off+i >= n {
				buf.WriteString("   ")
			} else {
				if highlightOff >= 0 && off+i == highlightOff {
					buf.WriteByte('>')
				} else {
					buf.WriteByte(' ')
				}
				fmt.Fprintf(&buf, "%02x", b[off+i])
			}
		}
		buf.WriteString("  |")
		for i := range 8 {
			if off+i < n {
				v := b[off+i]
				if v >= 32 && v <= 126 {
					buf.WriteByte(v)
				} else {
					buf.WriteByte('.')
				}
			}
		}
		off += 8
		buf.WriteString("|\n")
		if off >= n {
			break
		}
	}
	return buf.String()
}

// BytesEq reports a hex dump of both sides with the first difference marked.
func BytesEq(t testing.TB, a, e []byte) bool {
	if !bytes.Equal(a, e) {
		an, en := len(a), len(e)
		off := min(an, en)
		for i := range min(an, en) {
			if a[i] != e[i] {
				off = i
				break
			}
		}

		t.Helper()
		t.Errorf("** got:\n%v\nwanted:\n%v\nfirst difference offset: 0x%x (%d)", HexDump(a, off), HexDump(e, off), off, off)
		return false
	}
	return true
}

// SameMultiset reports whether a and e hold the same items with the same
// multiplicities, comparing items with reflect.DeepEqual and ignoring order.
func SameMultiset[T any](a, e []T) bool {
	if len(a) != len(e) {
		return false
	}
	used := make([]bool, len(e))
outer:
	for _, x := range a {
		for j, y := range e {
			if !used[j] && reflect.DeepEqual(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// MultisetEq fails the test unless a and e are equal as multisets.
func MultisetEq[T any](t testing.TB, a, e []T) bool {
	if !SameMultiset(a, e) {
		t.Helper()
		t.Errorf("** got %d items:\n%s\nwanted %d items (in any order):\n%s", len(a), dumpItems(a), len(e), dumpItems(e))
		return false
	}
	return true
}

func dumpItems[T any](items []T) string {
	var buf strings.Builder
	for i, item := range items {
		fmt.Fprintf(&buf, "  %d: %#v\n", i, item)
	}
	return buf.String()
}
