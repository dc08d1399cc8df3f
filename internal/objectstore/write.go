package objectstore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/tnewman/dray/internal/handle"
)

// startBackendSpan is defined in adapter.go and reused across every file in
// this package that issues S3 calls.

// partFlushThreshold is the buffered-byte count at which Write flushes a
// multipart part, matching original_source/src/storage/s3.rs's literal
// 10000000-byte check in write_data.
const partFlushThreshold = 10000000

// OpenWrite starts a multipart upload targeting path and registers a write
// handle to accumulate its parts. Every SFTP write, regardless of size,
// goes through multipart upload rather than a single PutObject — this
// matches the original's unconditional open_write_handle and keeps large
// sequential writes from buffering an entire file in memory.
func (a *Adapter) OpenWrite(ctx context.Context, path string) (_ string, err error) {
	ctx, end := startBackendSpan(ctx, "OpenWrite")
	defer end(&err)

	key := objectKey(path)

	out, err := a.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: &a.bucket,
		Key:    &key,
	})
	if err != nil {
		return "", errors.Wrap(err, "create multipart upload")
	}
	if out.UploadId == nil {
		return "", errors.New("create multipart upload: missing upload id")
	}

	return a.reg.CreateWrite(&handle.WriteHandle{Key: key, UploadID: *out.UploadId})
}

// Write appends data to the write handle's buffer, flushing a part to S3
// once the buffer crosses partFlushThreshold.
func (a *Adapter) Write(ctx context.Context, handleID string, data []byte) error {
	wh, ok := a.reg.GetWrite(handleID)
	if !ok {
		return ErrHandleNotFound
	}

	if wh.Append(data) > partFlushThreshold {
		return a.flushPart(ctx, wh)
	}
	return nil
}

// flushPart uploads the handle's buffered bytes as the next sequential
// part and records its ETag. The part number is len(CompletedParts)+1.
// TakeBuffer, Parts and AddCompletedPart each take the handle's lock on
// their own, and no lock is held across the upload, so two flushes of the
// same handle must not overlap; a session dispatches one request at a
// time, so within a session they do not.
func (a *Adapter) flushPart(ctx context.Context, wh *handle.WriteHandle) (err error) {
	ctx, end := startBackendSpan(ctx, "flushPart")
	defer end(&err)

	buf := wh.TakeBuffer()
	partNumber := int32(len(wh.Parts()) + 1)

	out, err := a.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     &a.bucket,
		Key:        &wh.Key,
		UploadId:   &wh.UploadID,
		PartNumber: &partNumber,
		Body:       bytes.NewReader(buf),
	})
	if err != nil {
		return errors.Wrap(err, "upload part")
	}

	etag := ""
	if out.ETag != nil {
		etag = *out.ETag
	}
	wh.AddCompletedPart(handle.PartInfo{PartNumber: int(partNumber), ETag: etag})
	return nil
}

// CloseWrite flushes any buffered remainder as a final part (even an empty
// one, since CompleteMultipartUpload requires at least one part) and
// completes the multipart upload.
func (a *Adapter) CloseWrite(ctx context.Context, handleID string) (err error) {
	ctx, end := startBackendSpan(ctx, "CloseWrite")
	defer end(&err)

	wh, ok := a.reg.GetWrite(handleID)
	if !ok {
		return nil
	}

	if err = a.flushPart(ctx, wh); err != nil {
		return err
	}

	parts := wh.Parts()
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		pn := int32(p.PartNumber)
		etag := p.ETag
		completed[i] = types.CompletedPart{PartNumber: &pn, ETag: &etag}
	}

	_, err = a.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   &a.bucket,
		Key:      &wh.Key,
		UploadId: &wh.UploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})

	a.reg.Remove(handleID)
	return errors.Wrap(err, "complete multipart upload")
}

// Close dispatches CLOSE to whichever handle kind handleID names: a write
// handle is completed, a read handle's stream is released, and a
// directory handle is simply forgotten. Closing an unknown handle is a
// no-op success (spec.md §4.4).
func (a *Adapter) Close(ctx context.Context, handleID string) error {
	if _, ok := a.reg.GetWrite(handleID); ok {
		return a.CloseWrite(ctx, handleID)
	}
	if _, ok := a.reg.GetRead(handleID); ok {
		return a.CloseRead(handleID)
	}
	a.reg.Remove(handleID)
	return nil
}
