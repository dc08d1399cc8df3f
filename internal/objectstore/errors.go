package objectstore

import "github.com/pkg/errors"

// ErrNoSuchFile is returned when the backend reports no such key or no such
// prefix (spec.md §7's NoSuchFile taxonomy entry).
var ErrNoSuchFile = errors.New("no such file")

// ErrEOF is returned by Read when no bytes remain on a read handle. ReadDir
// does not return it: an exhausted listing comes back as an empty result.
var ErrEOF = errors.New("eof")

// ErrHandleNotFound is returned when an operation references a handle id
// that is not (or no longer) present in the registry.
var ErrHandleNotFound = errors.New("handle not found")
