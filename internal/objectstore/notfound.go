package objectstore

import (
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithy "github.com/aws/smithy-go"
)

// isNotFound reports whether err represents S3's "no such key/bucket"
// family of responses, however the SDK chose to surface it: a typed
// exception (NoSuchKey, NotFound) or a generic API error carrying one of
// those codes. S3-compatible services are inconsistent about which shape
// they return, so both are checked.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if stderrors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}

	return false
}
