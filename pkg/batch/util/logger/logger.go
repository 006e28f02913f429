package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel はログのレベルを表す型です。
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	atomic   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar    = newSugaredLogger(os.Stderr)
)

// newSugaredLogger は指定された出力先へ書き込む zap の SugaredLogger を生成します。
func newSugaredLogger(w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atomic)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetOutput はログの出力先を差し替えます。主にテストで使用します。
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sugar = newSugaredLogger(w)
}

// SetLogLevel はログレベルを設定します。
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		logLevel = LevelDebug
		atomic.SetLevel(zapcore.DebugLevel)
	case "INFO", "":
		logLevel = LevelInfo
		atomic.SetLevel(zapcore.InfoLevel)
	case "WARN", "WARNING":
		logLevel = LevelWarn
		atomic.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		logLevel = LevelError
		atomic.SetLevel(zapcore.ErrorLevel)
	case "FATAL":
		logLevel = LevelFatal
		atomic.SetLevel(zapcore.FatalLevel)
	default:
		logLevel = LevelInfo
		atomic.SetLevel(zapcore.InfoLevel)
		sugar.Warnf("不明なログレベル '%s' が指定されました。INFO レベルで続行します。", level)
	}
}

// GetLogLevel は現在のログレベルを返します。
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugf は DEBUG レベルのログを出力します。
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof は INFO レベルのログを出力します。
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf は WARN レベルのログを出力します。
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf は ERROR レベルのログを出力します。
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf は FATAL レベルのログを出力し、プログラムを終了します。
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Sync はバッファされたログをフラッシュします。
func Sync() error {
	return current().Sync()
}
