package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
)

// #region server
// Server implements OracleServer over an engine.
type Server struct {
	engine        *engine.Engine
	log           *zap.Logger
	validate      *validator.Validate
	health        *health.Server
	defaultMethod casting.Method
	defaultSource string
}

var _ OracleServer = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the call logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logging.Component(l, "grpc") }
}

// WithDefaults sets the method and source used when a request leaves them out.
func WithDefaults(method casting.Method, source string) Option {
	return func(s *Server) {
		s.defaultMethod = method
		s.defaultSource = source
	}
}

// NewServer returns a server for eng.
func NewServer(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:        eng,
		log:           zap.NewNop(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		health:        health.NewServer(),
		defaultMethod: casting.MethodFire,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the oracle and health services to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
	healthpb.RegisterHealthServer(g, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// NewGRPCServer builds a grpc.Server with call logging and both services registered.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.logCalls)}, opts...)
	g := grpc.NewServer(opts...)
	s.Register(g)
	return g
}

// Shutdown marks every service NOT_SERVING.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Info("call", fields...)
	return resp, err
}

// #endregion server

// #region handlers
// CastReading casts a reading, substituting methods when the request allows it.
func (s *Server) CastReading(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CastRequest
	if err := s.decode(in, &req); err != nil {
		return nil, toStatus(err)
	}

	method := s.defaultMethod
	if req.Method != "" {
		m, err := casting.ParseMethod(req.Method)
		if err != nil {
			return nil, toStatus(err)
		}
		method = m
	}
	er := engine.Request{Method: method, Question: req.Question, Source: req.Source, Seed: req.Seed}
	if er.Source == "" {
		er.Source = s.defaultSource
	}

	var (
		res CastResult
		err error
	)
	if req.Fallback {
		res.Reading, res.Substituted, err = s.engine.CastReadingWithFallback(ctx, er)
	} else {
		res.Reading, err = s.engine.CastReading(ctx, er)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(res)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// Resolve looks a hexagram up and resolves its bundle from the requested source.
func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ResolveRequest
	if err := s.decode(in, &req); err != nil {
		return nil, toStatus(err)
	}

	l := s.engine.Resolver().Loader()
	var (
		rec loader.Record
		err error
	)
	if req.Number != 0 && req.Binary == "" && req.Lines == "" && req.Name == "" {
		rec, err = l.GetByNumber(ctx, req.Number)
	} else {
		rec, err = l.Find(ctx, loader.Query{Number: req.Number, Binary: req.Binary, Lines: req.Lines, Name: req.Name})
	}
	if err != nil {
		return nil, toStatus(err)
	}

	source := req.Source
	if source == "" {
		source = s.defaultSource
	}
	res := s.engine.Resolver().ResolveSet(rec.Set, source)
	out, err := toStruct(ResolveResult{
		Hexagram:  rec.Hexagram,
		Symbol:    rec.Hexagram.Symbol(),
		Bundle:    res.Bundle,
		Requested: res.Requested,
		Used:      res.Used,
		FellBack:  res.FellBack(),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func (s *Server) decode(in *structpb.Struct, v any) error {
	if err := fromStruct(in, v, true); err != nil {
		return err
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", faults.ErrInvalidArgument, err)
	}
	return nil
}

// #endregion handlers
