package objectstore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/tnewman/dray/internal/handle"
)

// OpenRead issues a GetObject for path and registers the resulting stream
// as a read handle. Grounded on original_source/src/storage/s3.rs's
// open_read_handle.
func (a *Adapter) OpenRead(ctx context.Context, path string) (_ string, err error) {
	ctx, end := startBackendSpan(ctx, "OpenRead")
	defer end(&err)

	key := objectKey(path)

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &a.bucket, Key: &key})
	if isNotFound(err) {
		return "", ErrNoSuchFile
	}
	if err != nil {
		return "", errors.Wrap(err, "get object")
	}

	return a.reg.CreateRead(&handle.ReadHandle{Key: key, Reader: out.Body})
}

// Read returns up to length bytes from the read handle's stream. ErrEOF is
// returned once the stream is exhausted, matching spec.md §4.4's READ
// contract (an empty read past end-of-file is a distinct outcome from a
// short read).
func (a *Adapter) Read(handleID string, length uint32) ([]byte, error) {
	rh, ok := a.reg.GetRead(handleID)
	if !ok {
		return nil, ErrHandleNotFound
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(rh, buf)
	if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return nil, ErrEOF
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "read")
	}
	return buf[:n], nil
}

// CloseRead releases the underlying stream and forgets the handle.
func (a *Adapter) CloseRead(handleID string) error {
	rh, ok := a.reg.GetRead(handleID)
	if !ok {
		return nil
	}
	err := rh.Close()
	a.reg.Remove(handleID)
	return errors.Wrap(err, "close read handle")
}
