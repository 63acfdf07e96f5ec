// Package simerr defines the error taxonomy for the simulator. All of it is
// detected at construction, at trace-record parse time, or by the tid check
// at the entry of engine.MemAccess; the access path behind that check never
// fails (see internal/engine).
package simerr

import "errors"

// ConfigInvalid is returned when cache geometry or domain sizing violates
// the constraints: line_size must be a power of two, num_lines must be a
// multiple of assoc, and num_lines/assoc must be a power of two.
var ConfigInvalid = errors.New("simerr: invalid cache configuration")

// TraceMalformed is returned when a trace record's rw field is neither
// 'R' nor 'W'.
var TraceMalformed = errors.New("simerr: malformed trace record")

// TidOutOfRange is returned when a trace record names a tid that indexes
// past the thread-to-domain table.
var TidOutOfRange = errors.New("simerr: tid out of range")
