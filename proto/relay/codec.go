package relay

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec carries the service payloads as JSON.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}
