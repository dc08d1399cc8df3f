package objectstore

import (
	"bufio"
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/tnewman/dray/internal/handle"
	"github.com/tnewman/dray/internal/telemetry"
)

// startBackendSpan opens the "one span per backend call" half of spec.md
// §9's tracing requirement; internal/session's dispatch already covers the
// "one per decoded request" half, so every exported Adapter method that
// issues at least one S3 call starts its own child span here.
func startBackendSpan(ctx context.Context, name string) (context.Context, func(*error)) {
	ctx, span := telemetry.StartSpan(ctx, "objectstore."+name)
	return ctx, func(errp *error) {
		if errp != nil {
			telemetry.RecordError(ctx, *errp)
		}
		span.End()
	}
}

// Adapter is the object-store half of a single SFTP session: the S3 client
// and bucket are shared with every session on the server, but the handle
// registry is scoped to one connection, matching spec.md §4.5's handle
// lifetime.
//
// Grounded on original_source/src/storage/s3.rs's S3Storage, which pairs
// one shared aws_sdk_s3::Client with a per-instance HandleManager.
type Adapter struct {
	client s3API
	bucket string
	reg    *handle.Registry
}

// NewAdapter builds an Adapter over an existing S3 client, with a new
// handle registry of its own. maxHandles, when non-positive, falls back to
// handle.DefaultMaxHandles.
func NewAdapter(client *s3.Client, bucket string, maxHandles int) *Adapter {
	return &Adapter{
		client: client,
		bucket: bucket,
		reg:    handle.New(maxHandles),
	}
}

func newAdapterWithAPI(client s3API, bucket string, maxHandles int) *Adapter {
	return &Adapter{client: client, bucket: bucket, reg: handle.New(maxHandles)}
}

// EnsureBucket implements the teacher-and-original's startup behavior:
// HEAD the configured bucket, and if it does not exist, create it once.
// Grounded on original_source/src/storage/s3.rs's Storage::init.
func (a *Adapter) EnsureBucket(ctx context.Context) (err error) {
	ctx, end := startBackendSpan(ctx, "EnsureBucket")
	defer end(&err)

	_, err = a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &a.bucket})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return errors.Wrap(err, "head bucket")
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &a.bucket})
	if err != nil {
		return errors.Wrap(err, "create bucket")
	}
	return nil
}

// HealthCheck reports whether the backing bucket is currently reachable.
// Unlike EnsureBucket, it never creates the bucket.
func (a *Adapter) HealthCheck(ctx context.Context) (err error) {
	ctx, end := startBackendSpan(ctx, "HealthCheck")
	defer end(&err)

	_, err = a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &a.bucket})
	if err != nil {
		return errors.Wrap(err, "health check")
	}
	return nil
}

// GetAuthorizedKeys fetches and parses ".ssh/<user>/authorized_keys" from
// the bucket. A missing object is not an error: it yields an empty key
// list, and this function deliberately does not distinguish "no such user"
// from "user has no keys" (spec.md §6.2) — both a typo'd username and an
// unprovisioned one are rejected identically by the PublicKeyCallback.
func (a *Adapter) GetAuthorizedKeys(ctx context.Context, user string) (_ []ssh.PublicKey, err error) {
	ctx, end := startBackendSpan(ctx, "GetAuthorizedKeys")
	defer end(&err)

	key := ".ssh/" + user + "/authorized_keys"

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &a.bucket, Key: &key})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get authorized keys")
	}
	defer out.Body.Close()

	return parseAuthorizedKeys(out.Body)
}

// parseAuthorizedKeys parses an OpenSSH authorized_keys file per spec.md
// §6: each non-empty line has 2+ whitespace-separated fields, the second
// of which is the base64-encoded key; a 1-field line is also tolerated and
// that single field is parsed as the base64 key. Lines that fail to parse
// are silently dropped rather than failing the whole file.
//
// Grounded on original_source/src/ssh_keys.rs's parse_authorized_keys,
// which parses the base64 field directly rather than delegating to a
// full-line authorized_keys parser (x/crypto/ssh's ParseAuthorizedKey
// requires a recognized key-type field first and rejects the bare
// single-field form the spec explicitly tolerates).
func parseAuthorizedKeys(r interface {
	Read(p []byte) (int, error)
}) ([]ssh.PublicKey, error) {
	var keys []ssh.PublicKey

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		var encoded string
		switch len(fields) {
		case 1:
			encoded = fields[0]
		default:
			encoded = fields[1]
		}

		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		pub, err := ssh.ParsePublicKey(raw)
		if err != nil {
			continue
		}
		keys = append(keys, pub)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan authorized keys")
	}
	return keys, nil
}

// OpenDir opens a listing cursor over dirName and returns its handle id.
func (a *Adapter) OpenDir(dirName string) (string, error) {
	return a.reg.CreateDir(&handle.DirHandle{Prefix: prefix(dirName)})
}

// ReadDir fetches the next page of a directory listing. Once the cursor has
// reached its end it returns a nil slice and no error; the session treats
// any empty result as the end of the listing (spec.md §4.4).
func (a *Adapter) ReadDir(ctx context.Context, handleID string) (_ []Entry, err error) {
	ctx, end := startBackendSpan(ctx, "ReadDir")
	defer end(&err)

	dh, ok := a.reg.GetDir(handleID)
	if !ok {
		return nil, ErrHandleNotFound
	}

	token, eof := dh.Cursor()
	if eof {
		return nil, nil
	}

	in := &s3.ListObjectsV2Input{
		Bucket:    &a.bucket,
		Prefix:    &dh.Prefix,
		Delimiter: stringPtr("/"),
	}
	if token != "" {
		in.ContinuationToken = &token
	}

	out, err := a.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "list objects")
	}

	next := ""
	if out.NextContinuationToken != nil {
		next = *out.NextContinuationToken
	}
	dh.Advance(next, next == "")

	entries := make([]Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
	for _, cp := range out.CommonPrefixes {
		entries = append(entries, entryFromCommonPrefix(cp))
	}
	for _, obj := range out.Contents {
		key := ""
		if obj.Key != nil {
			key = *obj.Key
		}
		if isFolderMarker(key) {
			continue
		}
		entries = append(entries, entryFromObject(obj))
	}

	return entries, nil
}

// CreateDir writes the folder-marker object standing in for dirName, since
// S3 has no native empty-prefix concept.
func (a *Adapter) CreateDir(ctx context.Context, dirName string) (err error) {
	ctx, end := startBackendSpan(ctx, "CreateDir")
	defer end(&err)

	key := folderMarker(dirName)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &a.bucket, Key: &key})
	return errors.Wrap(err, "create dir")
}

// RemoveDir deletes every object under dirName's prefix, paginating through
// the full listing. It never fails because the directory still has
// children — spec.md §4.4 treats RMDIR as "delete everything under this
// prefix", not the POSIX "directory must be empty" rule.
func (a *Adapter) RemoveDir(ctx context.Context, dirName string) (err error) {
	ctx, end := startBackendSpan(ctx, "RemoveDir")
	defer end(&err)

	p := prefix(dirName)
	var token *string

	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &a.bucket,
			Prefix:            &p,
			ContinuationToken: token,
		})
		if err != nil {
			return errors.Wrap(err, "list objects")
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			if err := a.RemoveFile(ctx, *obj.Key); err != nil {
				return err
			}
		}

		if out.NextContinuationToken == nil {
			return nil
		}
		token = out.NextContinuationToken
	}
}

// GetFileMetadata resolves path to an Entry, first assuming it is an
// object and, on a miss, falling back to treating it as an implicit
// directory prefix. Grounded on original_source/src/storage/s3.rs's
// get_file_metadata / get_directory_metadata pair.
func (a *Adapter) GetFileMetadata(ctx context.Context, path string) (_ Entry, err error) {
	ctx, end := startBackendSpan(ctx, "GetFileMetadata")
	defer end(&err)

	key := objectKey(path)

	head, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &a.bucket, Key: &key})
	if err == nil {
		return entryFromHeadObject(key, head.ContentLength, head.LastModified), nil
	}
	if !isNotFound(err) {
		return Entry{}, errors.Wrap(err, "head object")
	}

	return a.getDirectoryMetadata(ctx, path)
}

func (a *Adapter) getDirectoryMetadata(ctx context.Context, dirName string) (Entry, error) {
	p := prefix(dirName)

	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    &a.bucket,
		Prefix:    &p,
		Delimiter: stringPtr("/"),
	})
	if err != nil {
		return Entry{}, errors.Wrap(err, "list objects")
	}

	if len(out.Contents) == 0 && len(out.CommonPrefixes) == 0 {
		return Entry{}, ErrNoSuchFile
	}

	return entryFromDirectoryPrefix(dirName), nil
}

// RemoveFile deletes the single object at path.
func (a *Adapter) RemoveFile(ctx context.Context, path string) (err error) {
	ctx, end := startBackendSpan(ctx, "RemoveFile")
	defer end(&err)

	key := objectKey(path)
	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &a.bucket, Key: &key})
	return errors.Wrap(err, "delete object")
}

// Rename moves current to new. Files are a single CopyObject+DeleteObject;
// directories are renamed key-by-key across a paginated listing, since S3
// has no atomic prefix rename. Either form can leave a half-renamed tree if
// it fails partway, matching the non-atomicity spec.md §4.4 calls out.
func (a *Adapter) Rename(ctx context.Context, current, newPath string) (err error) {
	ctx, end := startBackendSpan(ctx, "Rename")
	defer end(&err)

	entry, err := a.GetFileMetadata(ctx, current)
	if err != nil {
		return err
	}

	if entry.IsDir {
		return a.renameDir(ctx, current, newPath)
	}
	return a.renameFile(ctx, objectKey(current), objectKey(newPath))
}

func (a *Adapter) renameFile(ctx context.Context, currentKey, newKey string) error {
	src := copySource(a.bucket, currentKey)
	if _, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &a.bucket,
		CopySource: &src,
		Key:        &newKey,
	}); err != nil {
		return errors.Wrap(err, "copy object")
	}

	key := currentKey
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &a.bucket, Key: &key})
	return errors.Wrap(err, "delete object")
}

func (a *Adapter) renameDir(ctx context.Context, current, newPath string) error {
	currentPrefix := prefix(current)
	newPrefix := prefix(newPath)

	var token *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &a.bucket,
			Prefix:            &currentPrefix,
			ContinuationToken: token,
		})
		if err != nil {
			return errors.Wrap(err, "list objects")
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			destination := strings.Replace(*obj.Key, currentPrefix, newPrefix, 1)
			if err := a.renameFile(ctx, *obj.Key, destination); err != nil {
				return err
			}
		}

		if out.NextContinuationToken == nil {
			return nil
		}
		token = out.NextContinuationToken
	}
}

// GetHandleMetadata resolves FSTAT: it stats whichever object or prefix
// handleID is bound to, regardless of handle kind. Grounded on
// original_source/src/storage/handle.rs's HandleManager::get_handle_path,
// which FSTAT uses the same way to recover a path from a handle before
// deferring to the regular stat codepath.
func (a *Adapter) GetHandleMetadata(ctx context.Context, handleID string) (Entry, error) {
	if rh, ok := a.reg.GetRead(handleID); ok {
		return a.GetFileMetadata(ctx, "/"+rh.Key)
	}
	if wh, ok := a.reg.GetWrite(handleID); ok {
		return a.GetFileMetadata(ctx, "/"+wh.Key)
	}
	if dh, ok := a.reg.GetDir(handleID); ok {
		return a.GetFileMetadata(ctx, "/"+strings.TrimSuffix(dh.Prefix, "/"))
	}
	return Entry{}, ErrHandleNotFound
}

func stringPtr(s string) *string { return &s }
