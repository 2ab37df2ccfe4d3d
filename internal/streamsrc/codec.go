package streamsrc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

// jsonCodecName names the wire codec registered below for the
// subscription stream's content subtype (grpc.CallContentSubtype).
const jsonCodecName = "json"

// jsonCodec implements encoding.Codec, letting the generic
// grpc.ClientConn.NewStream call in Dial (streamsrc.go) move subscribeRequest/Update
// values without a generated protobuf stub.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func metadataWithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "x-token", token)
}
