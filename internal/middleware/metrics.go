// internal/middleware/metrics.go
package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
)

// UnaryMetricsInterceptor records the duration of each unary call by method
// and status code.
func UnaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := "OK"
		if err != nil {
			// status.Code reports Unknown for non-status errors.
			code = status.Code(err).String()
		}
		metrics.RecordGRPCLatency(info.FullMethod, code, time.Since(start).Seconds())

		return resp, err
	}
}
