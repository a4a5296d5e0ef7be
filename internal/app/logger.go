package app

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bbluechip/catalogadmin/config"
)

// initLogger replaces the zap globals. Console output always follows the
// configured mode; with file logging on, JSON lines are also written to a
// rotating file.
func initLogger(cfg *config.AppConfig) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	if cfg.Logger.Mode == "production" {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		consoleEncoder = zap.NewProductionEncoderConfig()
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(os.Stdout), level),
	}
	if cfg.Logger.FileEnable && cfg.Logger.Filename != "" {
		rotate := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64, // MB
			MaxBackups: 7,
			MaxAge:     7,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotate),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(logger.With(zap.String("app", cfg.System.Appid)))
}
