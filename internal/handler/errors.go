// internal/handler/errors.go
package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// grpcError maps pipeline errors to gRPC status errors.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(Code(err), err.Error())
}

// Code returns the gRPC code for err.
func Code(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, errs.ErrPipelineNotFitted),
		errors.Is(err, errs.ErrEmptyTrainingSet),
		errors.Is(err, errs.ErrSingleClass):
		return codes.FailedPrecondition
	case errors.Is(err, errs.ErrRetrainInProgress):
		return codes.Aborted
	case errs.IsNotFound(err):
		return codes.NotFound
	case errs.IsInvalidInput(err):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// invalidArgumentError creates an InvalidArgument gRPC error
func invalidArgumentError(format string, args ...interface{}) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// failedPreconditionError creates a FailedPrecondition gRPC error
func failedPreconditionError(format string, args ...interface{}) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}

// internalError creates an Internal gRPC error
func internalError(format string, args ...interface{}) error {
	return status.Errorf(codes.Internal, format, args...)
}
