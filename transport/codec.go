// Package transport carries Raft's RequestVote and AppendEntries RPCs over
// gRPC between nodes. It deliberately does not depend on protoc-generated
// message types: the service is described directly against grpc.ServiceDesc
// and every message is a plain Go struct encoded with encoding/gob, wired in
// as a custom grpc codec. Swapping in a .proto-generated stub later only
// touches this package.
package transport

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodecName is registered with grpc's encoding package and must match
// the content-subtype every client and server in this module negotiates;
// grpc falls back to "proto" otherwise and every call fails to marshal.
const gobCodecName = "gob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements google.golang.org/grpc/encoding.Codec using
// encoding/gob instead of protobuf wire format.
type gobCodec struct{}

func (gobCodec) Name() string { return gobCodecName }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
