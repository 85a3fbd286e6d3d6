// Package api holds the RPC messages of the microwin services and the
// connect handler and client constructors for them. Messages are plain
// structs carried by a JSON codec.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

const codecName = "json"

var _ connect.Codec = Codec{}

// Codec replaces connect's protobuf-only JSON codec.
type Codec struct{}

func (Codec) Name() string {
	return codecName
}

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
