// Package consensus is the ABCI-style request/response adapter: Info,
// InitChain, PrepareProposal, FinalizeBlock, Commit, CheckTx, Query, each
// mapping directly onto an App call. It is a registered gRPC service
// wrapped with structured logging and Prometheus metrics, but carries a
// hand-written ServiceDesc instead of a protoc-generated one: the wire
// messages are plain Go structs marshalled with the json-iterator codec
// below instead of protobuf, registered with grpc-go's pluggable codec
// extension point.
package consensus

import (
	"github.com/left-curve/grug/encoding"
	grpcencoding "google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	grpcencoding.RegisterCodec(jsonCodec{})
}

// jsonCodec adapts encoding.JSON (the kernel's own json-iterator wrapper)
// to grpc-go's Codec interface, so the consensus service can move its wire
// messages without a protobuf toolchain.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return encoding.MarshalJSON(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return encoding.UnmarshalJSON(data, v)
}

func (jsonCodec) Name() string { return codecName }
