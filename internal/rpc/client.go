package rpc

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region client-struct
// Client calls a remote oracle service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the oracle at addr. Without dial options the
// connection is plaintext.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close leaves it open.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region cast-reading
// CastReading asks the server for a new reading and checks the returned
// document is self-consistent.
func (c *Client) CastReading(ctx context.Context, req CastRequest) (CastResult, error) {
	in, err := toStruct(req)
	if err != nil {
		return CastResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, castReadingMethod, in, out); err != nil {
		return CastResult{}, fromStatus("cast reading", err)
	}

	doc := out.GetFields()["reading"].GetStructValue()
	if doc == nil {
		return CastResult{}, fmt.Errorf("%w: cast reading response has no reading", faults.ErrData)
	}
	data, err := protojson.Marshal(doc)
	if err != nil {
		return CastResult{}, fmt.Errorf("convert reading: %w", err)
	}
	reading, err := engine.Decode(bytes.NewReader(data))
	if err != nil {
		return CastResult{}, err
	}

	res := CastResult{Reading: reading}
	for _, v := range out.GetFields()["substituted"].GetListValue().GetValues() {
		res.Substituted = append(res.Substituted, casting.Method(v.GetStringValue()))
	}
	return res, nil
}

// #endregion cast-reading

// #region resolve
// Resolve fetches a hexagram and its display bundle.
func (c *Client) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	in, err := toStruct(req)
	if err != nil {
		return ResolveResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, resolveMethod, in, out); err != nil {
		return ResolveResult{}, fromStatus("resolve", err)
	}
	var res ResolveResult
	if err := fromStruct(out, &res, false); err != nil {
		return ResolveResult{}, fmt.Errorf("%w: resolve response: %v", faults.ErrData, err)
	}
	return res, nil
}

// #endregion resolve

// #region health
// Healthy reports whether the oracle service is SERVING.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fromStatus("health check", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// #endregion health
