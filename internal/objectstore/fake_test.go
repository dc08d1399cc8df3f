package objectstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory stand-in for s3API, used so the adapter's call
// sequencing can be tested without network access or real credentials.
type fakeS3 struct {
	bucketExists bool
	objects      map[string][]byte
	mtimes       map[string]time.Time

	uploads map[string]*fakeUpload

	nextUploadID    int
	uploadPartCalls int
}

type fakeUpload struct {
	key   string
	parts map[int32][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		bucketExists: true,
		objects:      map[string][]byte{},
		mtimes:       map[string]time.Time{},
		uploads:      map[string]*fakeUpload{},
	}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NotFound{}
	}
	length := int64(len(body))
	mtime := f.mtimes[*in.Key]
	return &s3.HeadObjectOutput{ContentLength: &length, LastModified: &mtime}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var body []byte
	if in.Body != nil {
		body, _ = io.ReadAll(in.Body)
	}
	f.objects[*in.Key] = body
	f.mtimes[*in.Key] = time.Unix(1700000000, 0).UTC()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := ""
	if in.Prefix != nil {
		prefix = *in.Prefix
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{Prefix: &prefix}

	if in.Delimiter == nil || *in.Delimiter == "" {
		for _, k := range keys {
			size := int64(len(f.objects[k]))
			key := k
			mtime := f.mtimes[k]
			out.Contents = append(out.Contents, types.Object{Key: &key, Size: &size, LastModified: &mtime})
		}
		return out, nil
	}

	seenPrefixes := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			cp := prefix + rest[:idx+1]
			if !seenPrefixes[cp] {
				seenPrefixes[cp] = true
				cpCopy := cp
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: &cpCopy})
			}
			continue
		}
		size := int64(len(f.objects[k]))
		key := k
		mtime := f.mtimes[k]
		out.Contents = append(out.Contents, types.Object{Key: &key, Size: &size, LastModified: &mtime})
	}

	return out, nil
}

func (f *fakeS3) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	src := *in.CopySource
	idx := strings.Index(src, "/")
	key := src[idx+1:]

	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	f.objects[*in.Key] = body
	f.mtimes[*in.Key] = f.mtimes[key]
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	delete(f.mtimes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.nextUploadID++
	id := "upload-" + string(rune('0'+f.nextUploadID))
	f.uploads[id] = &fakeUpload{key: *in.Key, parts: map[int32][]byte{}}
	return &s3.CreateMultipartUploadOutput{UploadId: &id}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	f.uploadPartCalls++
	up := f.uploads[*in.UploadId]
	body, _ := io.ReadAll(in.Body)
	up.parts[*in.PartNumber] = body
	etag := "etag"
	return &s3.UploadPartOutput{ETag: &etag}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	up := f.uploads[*in.UploadId]

	var partNumbers []int32
	for n := range up.parts {
		partNumbers = append(partNumbers, n)
	}
	sort.Slice(partNumbers, func(i, j int) bool { return partNumbers[i] < partNumbers[j] })

	var full []byte
	for _, n := range partNumbers {
		full = append(full, up.parts[n]...)
	}

	f.objects[up.key] = full
	f.mtimes[up.key] = time.Unix(1700000000, 0).UTC()
	delete(f.uploads, *in.UploadId)

	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	delete(f.uploads, *in.UploadId)
	return &s3.AbortMultipartUploadOutput{}, nil
}

var _ s3API = (*fakeS3)(nil)
