package graphdata

import (
	"errors"
	"fmt"
)

var (
	// ErrContract marks a programming-contract violation: an element kind
	// that does not honor its registration, a heterogeneous collection passed
	// where a homogeneous one is required, an unregistered type. These are
	// reported by panicking, never by returning.
	ErrContract = errors.New("graphdata: contract violation")

	// ErrUnsupported marks a primitive the format forbids.
	ErrUnsupported = errors.New("graphdata: unsupported operation")
)

// DataError reports bytes that are readable but violate the format: unknown
// type ids, bad declarations, broken factor references, impossible counts.
// I/O failures (including truncation) are never reported as DataError.
type DataError struct {
	Data []byte // available only when decoding from a byte slice
	Off  int64
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int64, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("graphdata: %s at offset %d: %v", e.Msg, e.Off, e.Err)
	} else {
		msg = fmt.Sprintf("graphdata: %s at offset %d", e.Msg, e.Off)
	}
	if n == 0 {
		return msg
	} else if n <= prefixLen+suffixLen {
		return fmt.Sprintf("%s: (%d) %x", msg, n, e.Data)
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		return fmt.Sprintf("%s: (%d) %x...%x", msg, n, p, s)
	}
}

// IsDataError reports whether err is (or wraps) a format violation as opposed
// to an I/O failure.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

func contractViolation(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...)))
}

func unsupported(op string) {
	panic(fmt.Errorf("%w: %s", ErrUnsupported, op))
}
