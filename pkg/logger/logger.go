package logger

import (
	"gridflow/conf"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Field 日志字段别名，调用方不需要直接依赖 zap
type Field = zap.Field

// Pair 构造一个键值对日志字段
func Pair(key string, value any) Field {
	return zap.Any(key, value)
}

// InitLogger 根据配置初始化全局日志，文件按 lumberjack 规则切割
func InitLogger(cfg *conf.LogConfig, appName string) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "2006-01-02 15:04:05.000"
	}
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	if cfg.FileName != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FileName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), level))
	}
	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if appName != "" {
		l = l.With(zap.String("app", appName))
	}
	log = l
}

// L 返回全局 logger，未初始化时退化为开发模式 logger（单元测试场景）
func L() *zap.Logger {
	once.Do(func() {
		if log == nil {
			l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
			if err != nil {
				l = zap.NewNop()
			}
			log = l
		}
	})
	return log
}

// Named 返回带模块名的 logger，供各组件持有
func Named(name string) *zap.Logger {
	return L().WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

func Debug(msg string, fields ...Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	L().Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	L().Fatal(msg, fields...)
}

func Debugf(format string, args ...any) {
	L().Sugar().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	L().Sugar().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	L().Sugar().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	L().Sugar().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	L().Sugar().Fatalf(format, args...)
}

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
