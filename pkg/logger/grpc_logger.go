package logger

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// 헬스 체크는 호출 빈도가 높아 Debug 레벨로만 기록합니다.
const healthServicePrefix = "grpc.health."

// grpcLogLevel 상태 코드에 따른 로그 레벨을 결정합니다.
func grpcLogLevel(service string, code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		if strings.HasPrefix(service, healthServicePrefix) {
			return zapcore.DebugLevel
		}
		return zapcore.InfoLevel
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable, codes.NotFound, codes.InvalidArgument:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}

func splitMethod(fullMethod string) (string, string) {
	return strings.TrimPrefix(path.Dir(fullMethod), "/"), path.Base(fullMethod)
}

// NewGrpcUnaryServerInterceptor는 단일 요청/응답 gRPC 메서드에 대한 로깅 인터셉터를 생성합니다.
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		service, method := splitMethod(info.FullMethod)

		resp, err := handler(ctx, req)

		code := grpcCode(err)
		fields := []zap.Field{
			zap.String("grpc.service", service),
			zap.String("grpc.method", method),
			zap.String("grpc.code", code.String()),
			zap.Duration("grpc.duration", time.Since(startTime)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if ce := logger.Check(grpcLogLevel(service, code), "gRPC 요청 완료"); ce != nil {
			ce.Write(fields...)
		}

		return resp, err
	}
}

// NewGrpcStreamServerInterceptor는 스트리밍 gRPC 메서드(예: Health.Watch)에 대한 로깅 인터셉터를 생성합니다.
func NewGrpcStreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		startTime := time.Now()
		service, method := splitMethod(info.FullMethod)

		wrapped := &countingServerStream{ServerStream: ss}
		err := handler(srv, wrapped)

		code := grpcCode(err)
		fields := []zap.Field{
			zap.String("grpc.service", service),
			zap.String("grpc.method", method),
			zap.String("grpc.code", code.String()),
			zap.Int("grpc.send_count", wrapped.sendCount),
			zap.Duration("grpc.duration", time.Since(startTime)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if ce := logger.Check(grpcLogLevel(service, code), "gRPC 스트림 종료"); ce != nil {
			ce.Write(fields...)
		}
		return err
	}
}

// countingServerStream은 송신 메시지 수를 추적합니다.
type countingServerStream struct {
	grpc.ServerStream
	sendCount int
}

func (w *countingServerStream) SendMsg(m interface{}) error {
	err := w.ServerStream.SendMsg(m)
	if err == nil {
		w.sendCount++
	}
	return err
}
