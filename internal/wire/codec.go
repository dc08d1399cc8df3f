package wire

// Decode parses one full SFTP frame — a u32 length, a u8 type byte, and
// length-1 payload bytes — into a typed Request. It is total: any short
// frame, any length that overruns the supplied slice, any unknown opcode,
// or any malformed payload yields ErrBadMessage rather than a panic or an
// out-of-bounds read (spec.md §4.1, §8 scenario 6). Bytes beyond the
// declared length, or beyond the opcode's grammar, are ignored.
func Decode(frame []byte) (Request, error) {
	r := newBuffer(frame)

	length, err := r.u32()
	if err != nil {
		return nil, ErrBadMessage
	}
	if length == 0 || uint64(length) > uint64(r.remaining()) {
		return nil, ErrBadMessage
	}
	opcode, err := r.u8()
	if err != nil {
		return nil, ErrBadMessage
	}
	payload, err := r.bytes(length - 1)
	if err != nil {
		return nil, ErrBadMessage
	}

	req, err := decodeRequest(opcode, payload)
	if err != nil {
		return nil, ErrBadMessage
	}
	return req, nil
}
