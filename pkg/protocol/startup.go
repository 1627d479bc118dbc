package protocol

import (
	"github.com/olapwire/pgshim/pkg/buffer"
)

// ProtocolVersion is the (major<<16)+minor version field, or one of the
// special request codes (SSLRequestCode, CancelRequestCode) that reuse the
// same field.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
	Raw   uint32
}

// StartupMessage is the very first message a client sends: no type byte, a
// version/request code, and (for a real startup) a run of key/value
// parameter pairs terminated by an empty key.
type StartupMessage struct {
	Version    ProtocolVersion
	Parameters map[string]string
}

// ReadStartupMessage reads the length-prefixed startup body and decodes it.
// The caller is responsible for having already consumed nothing else: this
// is the first read on a fresh connection.
func ReadStartupMessage(r *buffer.Reader) (*StartupMessage, error) {
	if _, err := r.ReadUntypedMsg(); err != nil {
		return nil, err
	}

	raw, err := r.GetUint32()
	if err != nil {
		return nil, err
	}

	version := ProtocolVersion{
		Major: uint16(raw >> 16),
		Minor: uint16(raw & 0xffff),
		Raw:   raw,
	}

	msg := &StartupMessage{Version: version}
	if raw == SSLRequestCode || raw == CancelRequestCode {
		return msg, nil
	}

	params := make(map[string]string)
	for {
		key, err := r.GetString()
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}

		value, err := r.GetString()
		if err != nil {
			return nil, err
		}

		params[key] = value
	}

	msg.Parameters = params
	return msg, nil
}

// ReadPasswordMessage reads a PasswordMessage's payload, having already
// consumed its type byte and length header via ReadTypedMsg.
func ReadPasswordMessage(r *buffer.Reader) (string, error) {
	return r.GetString()
}
