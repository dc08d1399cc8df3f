// Package wire implements the SFTP-v3 binary framing layer: decoding raw
// bytes into typed requests and encoding typed responses back into bytes.
// It has no knowledge of sessions, paths, or storage — see internal/session
// for the component that drives this codec.
package wire

import "github.com/pkg/errors"

// Status codes from the SSH_FXP_STATUS wire format (draft-ietf-secsh-filexfer-02 §7).
const (
	StatusOK               uint32 = 0
	StatusEOF              uint32 = 1
	StatusNoSuchFile       uint32 = 2
	StatusPermissionDenied uint32 = 3
	StatusFailure          uint32 = 4
	StatusBadMessage       uint32 = 5
	StatusNoConnection     uint32 = 6
	StatusConnectionLost   uint32 = 7
	StatusOpUnsupported    uint32 = 8
)

// ErrBadMessage is returned by Decode for any malformed input: a short read,
// an out-of-bounds length, or invalid UTF-8 in a length-prefixed string.
// Decode never panics and never returns any other kind of error.
var ErrBadMessage = errors.New("malformed sftp message")

// ErrUnknownOpcode is returned by decodeRequest for an unrecognized type
// byte. It does not wrap ErrBadMessage; Decode replaces it, like every
// other decode error, with ErrBadMessage, so Decode's callers never see it.
var ErrUnknownOpcode = errors.New("unknown sftp opcode")
