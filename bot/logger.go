package bot

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a logger in the given namespace
func NewLogger(env, level, ns string) (*zap.SugaredLogger, func() error, error) {
	var zapCfg zap.Config
	if env == EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build(zap.Fields(zap.String("ns", ns)))
	if err != nil {
		return nil, nil, err
	}

	return logger.Sugar(), logger.Sync, nil
}
