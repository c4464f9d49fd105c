// File: pkg/logger/zap.go
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 로거 설정
type Config struct {
	// Level 로그 레벨 (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`
	// Format 로그 포맷 (json, console)
	Format string `mapstructure:"format" yaml:"format"`
	// Output 로그 출력 대상 (stdout, stderr, file)
	Output string `mapstructure:"output" yaml:"output"`
	// FilePath 파일로 출력할 경우 파일 경로
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	// Development 개발 모드 여부
	Development bool `mapstructure:"development" yaml:"development"`
}

// NewZapLogger 새로운 zap 로거를 생성합니다.
// service 필드는 모든 로그 라인에 포함됩니다.
func NewZapLogger(config Config, service string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.Level)); err != nil || config.Level == "" {
		level.SetLevel(zapcore.InfoLevel)
	}

	// 로그 인코더 설정
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"

	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writeSyncer, err := newWriteSyncer(config)
	if err != nil {
		return nil, err
	}

	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if config.Development {
		options = append(options, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewCore(encoder, writeSyncer, level), options...)
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

func newWriteSyncer(config Config) (zapcore.WriteSyncer, error) {
	switch config.Output {
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "file":
		if config.FilePath == "" {
			return zapcore.AddSync(os.Stdout), nil
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		return zapcore.AddSync(file), nil
	default:
		return zapcore.AddSync(os.Stdout), nil
	}
}

// DefaultZapLogger 기본 설정으로 zap 로거를 생성합니다.
func DefaultZapLogger(service string) *zap.Logger {
	logger, err := NewZapLogger(Config{Level: "info", Format: "json", Output: "stdout"}, service)
	if err != nil {
		// 로거 생성 실패 시 기본 로거 반환
		return zap.NewExample()
	}
	return logger
}
