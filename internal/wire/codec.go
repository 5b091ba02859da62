package wire

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode writes one msgpack-encoded value to w.
func Encode(w io.Writer, v any) error {
	if err := msgpack.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return nil
}

// Decode reads one msgpack-encoded value from r. Untyped maps decode as
// map[string]any; integers keep their encoded width.
func Decode(r io.Reader, v any) error {
	if err := msgpack.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}

// Codec is the gRPC codec for wire messages.
type Codec struct{}

// Name is registered as the gRPC content-subtype.
func (Codec) Name() string { return "msgpack" }

// Marshal encodes v as msgpack.
func (Codec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes msgpack data into v.
func (Codec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
