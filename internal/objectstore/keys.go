package objectstore

import "strings"

// prefix converts a normalized SFTP directory path into an S3 listing
// prefix: the leading "/" is stripped (S3 keys never start with one) and a
// trailing "/" is guaranteed. The root path normalizes to "/" itself.
//
// Grounded on original_source/src/storage/s3.rs's get_s3_prefix.
func prefix(dirName string) string {
	if dirName == "" {
		return "/"
	}

	trimmed := dirName
	if strings.HasPrefix(trimmed, "/") {
		trimmed = trimmed[1:]
	}

	if strings.HasSuffix(trimmed, "/") {
		return trimmed
	}
	return trimmed + "/"
}

// folderMarker returns the key of the zero-byte object that stands in for
// an otherwise-empty S3 "directory" (S3 has no native empty-prefix concept).
//
// Grounded on original_source/src/storage/s3.rs's get_s3_folder_marker.
func folderMarker(dirName string) string {
	return prefix(dirName) + "_$folder$"
}

// objectKey converts a normalized SFTP file path into a flat S3 key.
func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

// copySource formats the bucket/key pair CopyObject expects in its
// CopySource field.
func copySource(bucket, key string) string {
	return bucket + "/" + key
}

// baseName returns the last "/"-delimited component of key, mirroring the
// teacher and original source's use of an rsplit for display names.
func baseName(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// isFolderMarker reports whether key is the synthetic marker object for an
// otherwise-empty directory, which must never appear in a directory listing.
func isFolderMarker(key string) bool {
	return strings.HasSuffix(key, "_$folder$")
}
