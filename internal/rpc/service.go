// Package rpc exposes the oracle as a gRPC service. Messages travel as
// google.protobuf.Struct documents carrying the same JSON shapes as the
// HTTP API, so the service needs no generated code.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// ServiceName is the fully qualified service name, also used for health checks.
const ServiceName = "oracle.v1.Oracle"

const (
	castReadingMethod = "/" + ServiceName + "/CastReading"
	resolveMethod     = "/" + ServiceName + "/Resolve"
)

// #region messages
// CastRequest asks for a new reading. Empty method and source take the
// server's defaults.
type CastRequest struct {
	Method   string `json:"method,omitempty" validate:"max=32"`
	Question string `json:"question,omitempty" validate:"max=2000"`
	Source   string `json:"source,omitempty" validate:"max=128"`
	Seed     string `json:"seed,omitempty" validate:"max=512"`
	Fallback bool   `json:"fallback,omitempty"`
}

// CastResult is a cast reading and the methods substituted away from.
type CastResult struct {
	Reading     *engine.Reading  `json:"reading"`
	Substituted []casting.Method `json:"substituted,omitempty"`
}

// ResolveRequest names one hexagram by exactly one key and the source to
// display it from.
type ResolveRequest struct {
	Number int    `json:"number,omitempty"`
	Binary string `json:"binary,omitempty"`
	Lines  string `json:"lines,omitempty"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
}

// ResolveResult is a hexagram with its display bundle.
type ResolveResult struct {
	Hexagram  reference.Hexagram `json:"hexagram"`
	Symbol    string             `json:"symbol"`
	Bundle    loader.Bundle      `json:"bundle"`
	Requested string             `json:"requested"`
	Used      string             `json:"used"`
	FellBack  bool               `json:"fell_back"`
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert message: %w", err)
	}
	return out, nil
}

// fromStruct decodes s into v. Strict decoding rejects unknown fields.
func fromStruct(s *structpb.Struct, v any, strict bool) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("convert message: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode message: %v", faults.ErrInvalidArgument, err)
	}
	return nil
}

// #endregion messages

// #region service-desc
// OracleServer is the server side of the oracle service.
type OracleServer interface {
	CastReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the oracle service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CastReading", Handler: castReadingHandler},
		{MethodName: "Resolve", Handler: resolveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oracle/v1/oracle.proto",
}

func castReadingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).CastReading(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: castReadingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OracleServer).CastReading(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OracleServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region status
// toStatus maps an error class to a gRPC status.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok && !faultClassed(err) {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, faults.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, faults.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, faults.ErrUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

func faultClassed(err error) bool {
	return faults.Class(err) != "internal"
}

// fromStatus turns a status error from op back into a classed error.
func fromStatus(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s rpc: %w", op, err)
	}
	var class error
	switch st.Code() {
	case codes.InvalidArgument:
		class = faults.ErrInvalidArgument
	case codes.NotFound:
		class = faults.ErrNotFound
	case codes.Unavailable:
		class = faults.ErrUnavailable
	case codes.DeadlineExceeded:
		class = context.DeadlineExceeded
	}
	if class == nil {
		return fmt.Errorf("%s rpc: %w", op, err)
	}
	return fmt.Errorf("%s rpc: %w (%w)", op, class, err)
}

// #endregion status
