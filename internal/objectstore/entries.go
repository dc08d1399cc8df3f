package objectstore

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tnewman/dray/internal/wire"
)

// defaultFilePermissions and defaultDirPermissions are the permission bits
// S3 object metadata is synthesized with, since S3 has no notion of POSIX
// permissions. Grounded on original_source/src/storage/s3.rs's
// map_object_to_file / map_prefix_to_file, which hardcode 0o100777/0o40777.
const (
	defaultFilePermissions = wire.ModeFile
	defaultDirPermissions  = wire.ModeDir
)

// Entry describes one file or directory as seen through the object store,
// carrying just enough to build both a NAME response entry and file
// attributes (spec.md §6).
type Entry struct {
	Name        string
	IsDir       bool
	Size        uint64
	MTime       uint32
	Permissions uint32
}

// Attrs converts an Entry into wire-level FileAttributes.
func (e Entry) Attrs() wire.FileAttributes {
	if e.IsDir {
		return wire.NewDirAttributes(e.Permissions)
	}
	return wire.NewFileSizeAttributes(e.Permissions, e.Size, e.MTime)
}

func entryFromObject(obj types.Object) Entry {
	key := ""
	if obj.Key != nil {
		key = *obj.Key
	}

	var size uint64
	if obj.Size != nil {
		size = uint64(*obj.Size)
	}

	return Entry{
		Name:        baseName(key),
		IsDir:       false,
		Size:        size,
		MTime:       epochSecondsOf(obj.LastModified),
		Permissions: defaultFilePermissions,
	}
}

func entryFromCommonPrefix(cp types.CommonPrefix) Entry {
	p := ""
	if cp.Prefix != nil {
		p = *cp.Prefix
	}
	p = trimTrailingSlash(p)

	return Entry{
		Name:        baseName(p),
		IsDir:       true,
		Permissions: defaultDirPermissions,
	}
}

func entryFromHeadObject(key string, contentLength *int64, lastModified *time.Time) Entry {
	var size uint64
	if contentLength != nil {
		size = uint64(*contentLength)
	}

	return Entry{
		Name:        baseName(key),
		IsDir:       false,
		Size:        size,
		MTime:       epochSecondsOf(lastModified),
		Permissions: defaultFilePermissions,
	}
}

func entryFromDirectoryPrefix(dirName string) Entry {
	return Entry{
		Name:        baseName(trimTrailingSlash(prefix(dirName))),
		IsDir:       true,
		Permissions: defaultDirPermissions,
	}
}

// epochSecondsOf converts an S3 LastModified timestamp to SFTP's uint32
// epoch-seconds mtime. A nil timestamp (S3 always sets one for real
// objects, but the field is defensively optional in the SDK type) maps to
// epoch 0, matching original_source/src/storage/s3.rs's fallback when its
// RFC 3339 parse fails.
func epochSecondsOf(t *time.Time) uint32 {
	if t == nil {
		return 0
	}
	unix := t.Unix()
	if unix < 0 {
		return 0
	}
	return uint32(unix)
}

func trimTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}
