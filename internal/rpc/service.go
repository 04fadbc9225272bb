package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/ruleset-engine/internal/conflicts"
	"github.com/danielpatrickdp/ruleset-engine/internal/pipeline"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
	"github.com/danielpatrickdp/ruleset-engine/internal/scoring"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ruleset.v1.RulesetService"

// #region service-desc
// RulesetServiceServer is implemented by Server. Every method takes and
// returns a structpb.Struct holding the JSON form of the wire types.
type RulesetServiceServer interface {
	DefaultProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeriveProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectConflicts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RulesetServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RulesetServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(RulesetServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes the ruleset service without generated stubs.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RulesetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DefaultProfile", Handler: handler("DefaultProfile", RulesetServiceServer.DefaultProfile)},
		{MethodName: "DeriveProfile", Handler: handler("DeriveProfile", RulesetServiceServer.DeriveProfile)},
		{MethodName: "DetectConflicts", Handler: handler("DetectConflicts", RulesetServiceServer.DetectConflicts)},
		{MethodName: "ScoreText", Handler: handler("ScoreText", RulesetServiceServer.ScoreText)},
		{MethodName: "Evaluate", Handler: handler("Evaluate", RulesetServiceServer.Evaluate)},
		{MethodName: "Summary", Handler: handler("Summary", RulesetServiceServer.Summary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ruleset/v1/ruleset.proto",
}

// Register attaches srv to a gRPC server.
func Register(gs grpc.ServiceRegistrar, srv RulesetServiceServer) {
	gs.RegisterService(&ServiceDesc, srv)
}

// #endregion service-desc

// #region server
// Server serves the ruleset engine over gRPC.
type Server struct {
	pipeline         *pipeline.Pipeline
	logger           *zap.Logger
	maxTextBytes     int
	diversifyDefault bool
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Logger           *zap.Logger
	MaxTextBytes     int
	DiversifyDefault bool
}

// NewServer wraps p. p should be built with the same MaxTextBytes.
func NewServer(p *pipeline.Pipeline, opts ServerOptions) *Server {
	s := &Server{
		pipeline:         p,
		logger:           opts.Logger,
		maxTextBytes:     opts.MaxTextBytes,
		diversifyDefault: opts.DiversifyDefault,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxTextBytes <= 0 {
		s.maxTextBytes = pipeline.DefaultMaxTextBytes
	}
	return s
}

func (s *Server) DefaultProfile(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	lane, err := parseLane(req.Lane)
	if err != nil {
		return nil, err
	}
	return encode(profile.DefaultEngineProfile(lane))
}

func (s *Server) DeriveProfile(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	lane, err := parseLane(req.Lane)
	if err != nil {
		return nil, err
	}
	return encode(profile.DeriveEngineProfile(lane, req.Influencers))
}

func (s *Server) DetectConflicts(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	p, err := resolve(req)
	if err != nil {
		return nil, err
	}
	found := conflicts.DetectConflicts(p)
	return encode(ConflictsResponse{Conflicts: found, HasHard: conflicts.HasHard(found)})
}

func (s *Server) ScoreText(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ScoreRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if len(req.Text) > s.maxTextBytes {
		return nil, status.Errorf(codes.ResourceExhausted, "text is %d bytes, limit %d", len(req.Text), s.maxTextBytes)
	}
	p, err := resolve(req.ProfileRequest)
	if err != nil {
		return nil, err
	}
	m := scoring.ComputeRulesetMetrics(req.Text)
	return encode(ScoreResponse{
		Metrics:        m,
		MelodramaScore: scoring.ComputeRulesetMelodramaScore(m),
		NuanceScore:    scoring.ComputeRulesetNuanceScore(m),
		ForbiddenHits:  scoring.DetectForbiddenMoves(req.Text, p.ForbiddenMoves),
	})
}

func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EvaluateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	lane, err := parseLane(req.Lane)
	if err != nil && req.Profile == nil {
		return nil, err
	}
	diversify := s.diversifyDefault
	if req.DiversifyEnabled != nil {
		diversify = *req.DiversifyEnabled
	}

	res, err := s.pipeline.Evaluate(ctx, pipeline.Request{
		Lane:             lane,
		Influencers:      req.Influencers,
		Profile:          req.Profile,
		Text:             req.Text,
		SimilarityRisk:   req.SimilarityRisk,
		DiversifyEnabled: diversify,
	})
	switch {
	case errors.Is(err, pipeline.ErrTextTooLarge):
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, profile.ErrUnknownLane):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil && res.AttemptID == "":
		return nil, status.Errorf(codes.Internal, "evaluate: %v", err)
	case err != nil:
		// verdict stands; persistence or publishing failed
		s.logger.Warn("evaluate side effects", zap.String("attempt_id", res.AttemptID), zap.Error(err))
	}
	return encode(res)
}

func (s *Server) Summary(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	p, err := resolve(req)
	if err != nil {
		return nil, err
	}
	return encode(SummaryResponse{Summary: profile.GenerateRulesSummary(p)})
}

// #endregion server

// #region interceptor
// LoggingInterceptor logs method, latency and status code for each unary call.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logger.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

// #endregion interceptor

// #region codec
func parseLane(tag string) (profile.Lane, error) {
	lane, err := profile.ParseLane(tag)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return lane, nil
}

func resolve(req ProfileRequest) (profile.EngineProfile, error) {
	if req.Profile != nil {
		return req.Profile.Clone(), nil
	}
	lane, err := parseLane(req.Lane)
	if err != nil {
		return profile.EngineProfile{}, err
	}
	return profile.DeriveEngineProfile(lane, req.Influencers), nil
}

// decode maps a Struct onto a wire type through its JSON form.
func decode(in *structpb.Struct, v any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "marshal request: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	st, err := toStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(st *structpb.Struct, v any) error {
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// #endregion codec
