package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"FareWatch/config"
)

var (
	// Logger 在 Init 之前是 no-op，测试里可以直接用
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Options 构建 logger 的参数，Init 从 config.Cfg 读取
type Options struct {
	Level       string
	Format      string // json, text
	OutputPath  string // stdout 或文件路径
	Service     string
	Environment string
	// Process server / worker / scheduler，同一服务多个进程的日志靠它区分
	Process string
}

func optionsFromConfig(process string) Options {
	cfg := config.Cfg
	return Options{
		Level:       cfg.LoggerLevel,
		Format:      cfg.LoggerFormat,
		OutputPath:  cfg.LoggerOutputPath,
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
		Process:     process,
	}
}

// Init 初始化全局 logger，并让 hertz 的 hlog 共用同一个 zap core
// 日志文件打不开时退回 stdout
func Init(process string) {
	opts := optionsFromConfig(process)
	hzLogger, closer, err := build(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v, logging to stdout\n", err)
		opts.OutputPath = "stdout"
		hzLogger, closer, _ = build(opts)
	}

	hlog.SetLogger(hzLogger)
	hlog.SetLevel(toHlogLevel(parseLevel(opts.Level)))

	logClose = closer
	Logger = hzLogger.Logger()
	Logger.Info("Logger initialized",
		zap.String("level", strings.ToUpper(opts.Level)),
		zap.String("format", opts.Format),
	)
}

// build 返回 hertz 适配的 logger，带上服务和进程字段
func build(opts Options) (*hertzzap.Logger, io.Closer, error) {
	ws, closer, err := writeSyncer(opts.OutputPath)
	if err != nil {
		return nil, nil, err
	}

	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))
	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(encoder(opts)),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
			zap.Fields(
				zap.String("service", opts.Service),
				zap.String("process", opts.Process),
				zap.String("environment", opts.Environment),
			),
		),
	)
	return hzLogger, closer, nil
}

func Sync() {
	_ = Logger.Sync()
	if logClose != nil {
		_ = logClose.Close()
	}
}

// Named 给组件一个带名字的子 logger
func Named(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

func encoder(opts Options) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	// 只有写到终端的文本日志才加颜色
	if strings.EqualFold(opts.Format, "text") {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if isStdout(opts.OutputPath) {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func isStdout(path string) bool {
	return path == "" || strings.EqualFold(path, "stdout")
}

func writeSyncer(path string) (zapcore.WriteSyncer, io.Closer, error) {
	if isStdout(path) {
		return zapcore.AddSync(os.Stdout), nil, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return zapcore.AddSync(file), file, nil
}

// parseLevel 不认识的级别按 INFO 处理，WARNING 视为 WARN
func parseLevel(level string) zapcore.Level {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "warning" {
		normalized = "warn"
	}
	lvl, err := zapcore.ParseLevel(normalized)
	if err != nil || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelInfo
	}
}
