// Package pathpolicy implements component D: SFTP path normalization and
// per-user home-directory authorization (spec.md §4.3).
//
// Grounded on the teacher's cleanPath (server.go, a thin filepath.Clean
// wrapper) and, for the exact algorithm, on
// original_source/src/protocol/request/path.rs's Path::to_normalized_path:
// a right-to-left component walk with a skip counter for "..". The two
// approaches agree on ordinary POSIX paths, but this package implements the
// spec's algorithm literally rather than delegating to path.Clean, since the
// idempotence and "no residual .. segments" laws in spec.md §8 are meant to
// hold by construction.
package pathpolicy

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrPermissionDenied is returned by Authorize when a normalized path falls
// outside the caller's home directory, or names the home directory itself
// in a context that forbids it (RMDIR, REMOVE, either side of RENAME).
var ErrPermissionDenied = errors.New("permission denied")

// Normalize applies spec.md §4.3's normalization algorithm: iterating
// components from the rightmost toward the leftmost, empty components and
// "." are dropped, ".." increments a skip counter that suppresses the next
// surviving component, and any component that survives is prepended to the
// result. An input with no surviving components normalizes to "/".
func Normalize(p string) string {
	components := strings.Split(p, "/")

	var kept []string
	skip := 0
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		switch c {
		case "", ".":
			// dropped
		case "..":
			skip++
		default:
			if skip > 0 {
				skip--
			} else {
				kept = append(kept, c)
			}
		}
	}

	if len(kept) == 0 {
		return "/"
	}

	// kept was built back-to-front; reverse it to get left-to-right order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return "/" + strings.Join(kept, "/")
}

// HomeDir returns the normalized home directory path for user, "/home/<user>".
func HomeDir(user string) string {
	return "/home/" + user
}

// Authorize normalizes path and checks it against user's home directory. It
// returns the normalized path on success. forbidHome additionally rejects
// the literal home directory itself — set by callers implementing RMDIR,
// REMOVE, and either operand of RENAME (spec.md §4.3's second paragraph).
func Authorize(path, user string, forbidHome bool) (string, error) {
	normalized := Normalize(path)
	home := HomeDir(user)

	if normalized != home && !strings.HasPrefix(normalized, home+"/") {
		return "", ErrPermissionDenied
	}
	if forbidHome && normalized == home {
		return "", ErrPermissionDenied
	}
	return normalized, nil
}
