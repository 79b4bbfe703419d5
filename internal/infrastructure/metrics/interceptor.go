package metrics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// UnaryServerInterceptor returns a gRPC interceptor that records metrics for each request.
// A response body carrying success=false counts as an error even though the
// call itself returned OK.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		method := info.FullMethod

		collector.RecordRequest(method)
		if exporter != nil {
			exporter.RecordRequest(method)
		}

		resp, err := handler(ctx, req)

		duration := time.Since(start).Seconds()
		collector.RecordDuration(method, duration)
		if exporter != nil {
			exporter.RecordDuration(method, duration)
		}

		if err != nil || reportsFailure(resp) {
			collector.RecordError(method)
			if exporter != nil {
				exporter.RecordError(method)
			}
		}

		return resp, err
	}
}

func reportsFailure(resp interface{}) bool {
	body, ok := resp.(*structpb.Struct)
	if !ok || body == nil {
		return false
	}
	success, ok := body.GetFields()["success"]
	if !ok {
		return false
	}
	_, isBool := success.GetKind().(*structpb.Value_BoolValue)
	return isBool && !success.GetBoolValue()
}
