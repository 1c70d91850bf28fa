// proto/classifierpb/classifier_grpc.go

// Package classifierpb defines the transferclassifier.v1.Classifier gRPC
// service. Requests and responses are protobuf well-known types, so the
// service needs no generated message code; see classifier.proto.
package classifierpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "transferclassifier.v1.Classifier"

const (
	Classifier_Classify_FullMethodName  = "/transferclassifier.v1.Classifier/Classify"
	Classifier_ModelInfo_FullMethodName = "/transferclassifier.v1.Classifier/ModelInfo"
	Classifier_Retrain_FullMethodName   = "/transferclassifier.v1.Classifier/Retrain"
)

// ClassifierClient is the client API for the Classifier service.
type ClassifierClient interface {
	// Classify predicts the label of the image at the given path.
	Classify(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	// ModelInfo describes the serving model and its held-out metrics.
	ModelInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Retrain regenerates the model and swaps it in.
	Retrain(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type classifierClient struct {
	cc grpc.ClientConnInterface
}

func NewClassifierClient(cc grpc.ClientConnInterface) ClassifierClient {
	return &classifierClient{cc}
}

func (c *classifierClient) Classify(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Classifier_Classify_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *classifierClient) ModelInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Classifier_ModelInfo_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *classifierClient) Retrain(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Classifier_Retrain_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassifierServer is the server API for the Classifier service.
// Implementations must embed UnimplementedClassifierServer.
type ClassifierServer interface {
	Classify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ModelInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Retrain(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	mustEmbedUnimplementedClassifierServer()
}

// UnimplementedClassifierServer must be embedded for forward compatibility.
type UnimplementedClassifierServer struct{}

func (UnimplementedClassifierServer) Classify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Classify not implemented")
}
func (UnimplementedClassifierServer) ModelInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ModelInfo not implemented")
}
func (UnimplementedClassifierServer) Retrain(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Retrain not implemented")
}
func (UnimplementedClassifierServer) mustEmbedUnimplementedClassifierServer() {}

func RegisterClassifierServer(s grpc.ServiceRegistrar, srv ClassifierServer) {
	s.RegisterService(&Classifier_ServiceDesc, srv)
}

func _Classifier_Classify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Classifier_Classify_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Classify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Classifier_ModelInfo_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).ModelInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Classifier_ModelInfo_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).ModelInfo(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Classifier_Retrain_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Retrain(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Classifier_Retrain_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Retrain(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Classifier_ServiceDesc is the grpc.ServiceDesc for the Classifier service.
var Classifier_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Classify",
			Handler:    _Classifier_Classify_Handler,
		},
		{
			MethodName: "ModelInfo",
			Handler:    _Classifier_ModelInfo_Handler,
		},
		{
			MethodName: "Retrain",
			Handler:    _Classifier_Retrain_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transferclassifier/v1/classifier.proto",
}
