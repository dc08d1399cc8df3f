package wire

// Response is a tagged sum with six variants (spec.md §3): Version, Status,
// Handle, Data, Name, Attrs.
type Response interface {
	isResponse()
}

// VersionResponse replies to Init. It carries no request id — the wire
// payload is just the server's protocol version.
type VersionResponse struct {
	ServerVersion uint32
}

func (VersionResponse) isResponse() {}

// StatusResponse is the universal "something happened" reply: success is
// StatusOK with an empty message, failure is one of the other codes with a
// short, not-necessarily-stable English message (spec.md §7).
type StatusResponse struct {
	RequestID uint32
	Code      uint32
	Message   string
}

func (StatusResponse) isResponse() {}

// OK builds a success status for request id.
func OK(id uint32) StatusResponse {
	return StatusResponse{RequestID: id, Code: StatusOK}
}

type HandleResponse struct {
	RequestID uint32
	Handle    string
}

func (HandleResponse) isResponse() {}

type DataResponse struct {
	RequestID uint32
	Data      []byte
}

func (DataResponse) isResponse() {}

// NameEntry is one entry within a NAME response: the file/directory's short
// display name, its ls -l style long name, and its attributes.
type NameEntry struct {
	ShortName string
	LongName  string
	Attrs     FileAttributes
}

type NameResponse struct {
	RequestID uint32
	Entries   []NameEntry
}

func (NameResponse) isResponse() {}

type AttrsResponse struct {
	RequestID uint32
	Attrs     FileAttributes
}

func (AttrsResponse) isResponse() {}

// Encode serializes a Response into a full length-prefixed, type-tagged
// frame ready to write to the channel.
func Encode(resp Response) []byte {
	var payload []byte
	var opcode uint8

	switch r := resp.(type) {
	case VersionResponse:
		opcode = opVersion
		payload = appendU32(nil, r.ServerVersion)

	case StatusResponse:
		opcode = opStatus
		payload = appendU32(nil, r.RequestID)
		payload = appendU32(payload, r.Code)
		payload = appendString(payload, r.Message)
		payload = appendString(payload, "en-US")

	case HandleResponse:
		opcode = opHandle
		payload = appendU32(nil, r.RequestID)
		payload = appendString(payload, r.Handle)

	case DataResponse:
		opcode = opData
		payload = appendU32(nil, r.RequestID)
		payload = appendBytes(payload, r.Data)

	case NameResponse:
		opcode = opName
		payload = appendU32(nil, r.RequestID)
		payload = appendU32(payload, uint32(len(r.Entries)))
		for _, e := range r.Entries {
			payload = appendString(payload, e.ShortName)
			payload = appendString(payload, e.LongName)
			payload = marshalAttrs(payload, e.Attrs)
		}

	case AttrsResponse:
		opcode = opAttrs
		payload = appendU32(nil, r.RequestID)
		payload = marshalAttrs(payload, r.Attrs)

	default:
		panic("wire: Encode: unknown response type")
	}

	frame := make([]byte, 0, 5+len(payload))
	frame = appendU32(frame, uint32(1+len(payload)))
	frame = appendU8(frame, opcode)
	return append(frame, payload...)
}

// DecodeResponse parses a previously-encoded Response frame back into its
// typed form. It exists only to support the round-trip testable property in
// spec.md §8 ("decoding the first u32+u8+payload of encode(s) recovers the
// type tag and the payload length exactly") — the server itself never needs
// to decode its own responses.
func DecodeResponse(frame []byte) (Response, error) {
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
	p, err := r.bytes(length - 1)
	if err != nil {
		return nil, ErrBadMessage
	}
	body := newBuffer(p)

	switch opcode {
	case opVersion:
		v, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		return VersionResponse{ServerVersion: v}, nil

	case opStatus:
		id, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		code, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		msg, err := body.str()
		if err != nil {
			return nil, ErrBadMessage
		}
		if _, err := body.str(); err != nil { // language tag
			return nil, ErrBadMessage
		}
		return StatusResponse{RequestID: id, Code: code, Message: msg}, nil

	case opHandle:
		id, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		h, err := body.str()
		if err != nil {
			return nil, ErrBadMessage
		}
		return HandleResponse{RequestID: id, Handle: h}, nil

	case opData:
		id, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		d, err := body.data()
		if err != nil {
			return nil, ErrBadMessage
		}
		return DataResponse{RequestID: id, Data: d}, nil

	case opName:
		id, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		count, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		entries := make([]NameEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			short, err := body.str()
			if err != nil {
				return nil, ErrBadMessage
			}
			long, err := body.str()
			if err != nil {
				return nil, ErrBadMessage
			}
			attrs, err := unmarshalAttrs(body)
			if err != nil {
				return nil, ErrBadMessage
			}
			entries = append(entries, NameEntry{ShortName: short, LongName: long, Attrs: attrs})
		}
		return NameResponse{RequestID: id, Entries: entries}, nil

	case opAttrs:
		id, err := body.u32()
		if err != nil {
			return nil, ErrBadMessage
		}
		attrs, err := unmarshalAttrs(body)
		if err != nil {
			return nil, ErrBadMessage
		}
		return AttrsResponse{RequestID: id, Attrs: attrs}, nil

	default:
		return nil, ErrBadMessage
	}
}
