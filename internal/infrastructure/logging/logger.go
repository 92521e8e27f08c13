package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the zap logger shared by every component.
type Logger struct {
	*zap.Logger
}

// Config selects level, encoding and destination.
type Config struct {
	Level       string // debug, info, warn or error
	Development bool   // console encoding with colors and stack traces on warn
	Output      string // file path, "stdout" or "stderr"; empty means stderr
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == "" {
		output = "stderr"
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig = productionEncoder()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Sampling = nil
	zapCfg.OutputPaths = []string{output}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger with the given name segment.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// Session returns a child logger tagged with a terminal session id.
func (l *Logger) Session(id string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("session_id", id))}
}

func productionEncoder() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	return enc
}
