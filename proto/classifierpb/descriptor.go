// proto/classifierpb/descriptor.go
package classifierpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

// File_classifier_proto describes classifier.proto. It is registered with
// protoregistry.GlobalFiles so server reflection can resolve the service
// and its methods.
var File_classifier_proto protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(classifierFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("classifierpb: build file descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("classifierpb: register file descriptor: %v", err))
	}
	File_classifier_proto = fd
}

// classifierFileProto mirrors classifier.proto; keep the two in sync.
func classifierFileProto() *descriptorpb.FileDescriptorProto {
	method := func(name, in, out string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(in),
			OutputType: proto.String(out),
		}
	}
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(Classifier_ServiceDesc.Metadata.(string)),
		Package: proto.String("transferclassifier.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			"google/protobuf/empty.proto",
			"google/protobuf/struct.proto",
			"google/protobuf/wrappers.proto",
		},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/SyedDaiam9101/transfer-classifier/proto/classifierpb"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Classifier"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Classify", ".google.protobuf.StringValue", ".google.protobuf.Struct"),
				method("ModelInfo", ".google.protobuf.Empty", ".google.protobuf.Struct"),
				method("Retrain", ".google.protobuf.Empty", ".google.protobuf.Struct"),
			},
		}},
	}
}
