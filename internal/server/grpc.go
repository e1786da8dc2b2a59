package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
)

// ToolServiceName is the fully qualified gRPC service name.
const ToolServiceName = "taxfiler.v1.ToolService"

const (
	callToolMethod  = "/" + ToolServiceName + "/CallTool"
	listToolsMethod = "/" + ToolServiceName + "/ListTools"
)

// ToolServer is the gRPC contract. Requests and responses are
// google.protobuf.Struct:
//
//	CallTool  {name, arguments{...}} -> {text, isError}
//	ListTools {}                     -> {tools: [...]}
type ToolServer interface {
	CallTool(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTools(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func callToolHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServer).CallTool(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callToolMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolServer).CallTool(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listToolsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServer).ListTools(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listToolsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolServer).ListTools(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ToolServiceDesc describes the tool service for grpc.Server.RegisterService.
var ToolServiceDesc = grpc.ServiceDesc{
	ServiceName: ToolServiceName,
	HandlerType: (*ToolServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CallTool", Handler: callToolHandler},
		{MethodName: "ListTools", Handler: listToolsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taxfiler/v1/tools.proto",
}

// GRPCToolServer adapts ToolService to ToolServer.
type GRPCToolServer struct {
	tools  *ToolService
	logger *slog.Logger
}

func NewGRPCToolServer(tools *ToolService, logger *slog.Logger) *GRPCToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCToolServer{tools: tools, logger: logger}
}

func (s *GRPCToolServer) CallTool(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := strings.TrimSpace(req.GetFields()["name"].GetStringValue())
	if name == "" {
		return nil, common.InvalidArgumentError("name is required")
	}
	args := req.GetFields()["arguments"].GetStructValue().AsMap()

	res, err := s.tools.Dispatch(ctx, name, args)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{"text": res.Text, "isError": res.IsError})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

func (s *GRPCToolServer) ListTools(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	names := s.tools.Names()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	out, err := structpb.NewStruct(map[string]any{"tools": list})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// RequestIDHeader carries the request id on both surfaces.
const RequestIDHeader = "x-request-id"

// UnaryRequestID copies an incoming x-request-id into the context (or
// generates one) and logs every call.
func UnaryRequestID(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
				ctx = common.WithRequestID(ctx, v[0])
			}
		}
		ctx, rid := common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.call",
			"req_id", rid,
			"method", info.FullMethod,
			"ok", err == nil,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// UnaryRecovery turns a handler panic into codes.Internal so one bad call
// cannot stop the server.
func UnaryRecovery(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc.panic",
					"req_id", common.RequestIDFromContext(ctx),
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				resp, err = nil, common.InternalError("internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// NewGRPCServer builds a server with the tool service and grpc health
// registered and marked serving.
func NewGRPCServer(tools *ToolService, logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryRequestID(logger), UnaryRecovery(logger)))
	srv.RegisterService(&ToolServiceDesc, NewGRPCToolServer(tools, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	// empty string means overall server health
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ToolServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

// ToolClient calls a remote ToolService.
type ToolClient struct {
	cc grpc.ClientConnInterface
}

func NewToolClient(cc grpc.ClientConnInterface) *ToolClient {
	return &ToolClient{cc: cc}
}

func (c *ToolClient) CallTool(ctx context.Context, name string, args map[string]any, opts ...grpc.CallOption) (ToolResult, error) {
	in, err := structpb.NewStruct(map[string]any{"name": name, "arguments": args})
	if err != nil {
		return ToolResult{}, common.NewAppError("INVALID_ARGUMENT", err.Error(), common.ErrInvalidInput)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, callToolMethod, in, out, opts...); err != nil {
		return ToolResult{}, err
	}
	return ToolResult{
		Text:    out.GetFields()["text"].GetStringValue(),
		IsError: out.GetFields()["isError"].GetBoolValue(),
	}, nil
}

func (c *ToolClient) ListTools(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listToolsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	var names []string
	for _, v := range out.GetFields()["tools"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}
