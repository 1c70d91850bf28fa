// internal/middleware/request_id.go
package middleware

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
)

const (
	// RequestIDHeader is the metadata key (and HTTP header) for the request ID
	RequestIDHeader = "x-request-id"
)

// requestIDKey is the context key for storing the request ID
type requestIDKey struct{}

// UnaryRequestIDInterceptor extracts x-request-id from incoming metadata or generates
// a new UUID if not present. The ID goes into the context, into the
// context logger and back out in the response header.
func UnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := ensureRequestID(incomingRequestID(ctx))
		ctx = WithRequestID(ctx, requestID)
		ctx = logging.NewContext(ctx, logging.FromContext(ctx).With(
			zap.String("request_id", requestID),
			zap.String("method", info.FullMethod),
		))

		// The header may already be sent; the ID is still in the context.
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		return handler(ctx, req)
	}
}

// maxRequestIDLen bounds client-supplied IDs before they reach logs.
const maxRequestIDLen = 128

// ensureRequestID returns id, or a fresh UUID when id is empty or too long.
func ensureRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLen {
		return uuid.New().String()
	}
	return id
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RequestIDHeader); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
