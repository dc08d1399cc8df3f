package wire

import (
	"fmt"
	"time"
)

// LongName renders the ls -l style listing line SFTP v3's NAME response
// carries alongside every short name, e.g.
// "-rwxrwxrwx    1 dray     dray         1234 Jan 02 15:04 file.txt".
//
// Grounded on the teacher's long_name.go (runLsTypeWord), generalized from
// an os.FileInfo-driven permission-bit walk to this package's
// FileAttributes bit layout, since the object store has no os.FileInfo to
// ask. Owner and group are always the synthetic "dray"/"dray" pair: the
// backend has no real uid/gid concept to report (spec.md §4.4).
func LongName(name string, attrs FileAttributes) string {
	mode := attrs.Permissions()
	typeWord := permissionsWord(mode, attrs.IsDir())

	size := attrs.Size()
	mtime := time.Unix(0, 0).UTC()
	if _, mt := attrs.Times(); mt != 0 {
		mtime = time.Unix(int64(mt), 0).UTC()
	}

	return fmt.Sprintf("%s %4d %-8s %-8s %8d %s %s",
		typeWord, 1, "dray", "dray", size, mtime.Format("Jan 02 15:04"), name)
}

// permissionsWord renders the 10-character type+rwx string ("-rwxr-xr-x").
func permissionsWord(mode uint32, isDir bool) string {
	tc := byte('-')
	if isDir {
		tc = 'd'
	}

	bits := [9]byte{'-', '-', '-', '-', '-', '-', '-', '-', '-'}
	letters := "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		shift := uint(8 - i)
		if mode&(1<<shift) != 0 {
			bits[i] = letters[i]
		}
	}

	return string(append([]byte{tc}, bits[:]...))
}
