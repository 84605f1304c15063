package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logSettings is what the environment controls about logging.
type logSettings struct {
	level   zapcore.Level
	console bool
}

func settingsFromEnv() logSettings {
	return logSettings{
		level:   parseLogLevel(os.Getenv("LOG_LEVEL")).Level(),
		console: strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "console"),
	}
}

// NewLogger builds the logger shared by the dashboard and the exporter. Output
// is JSON unless LOG_FORMAT=console; LOG_LEVEL picks the minimum level.
// A non-empty component is attached to every entry.
func NewLogger(component string) (*zap.Logger, error) {
	return buildLogger(component, settingsFromEnv())
}

func buildLogger(component string, s logSettings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(s.level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if s.console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Sampling = nil
	}

	var opts []zap.Option
	if component != "" {
		opts = append(opts, zap.Fields(zap.String("component", component)))
	}
	return cfg.Build(opts...)
}

// parseLogLevel accepts zap level names in any case. Unknown or empty values
// fall back to info.
func parseLogLevel(s string) zap.AtomicLevel {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	return zap.NewAtomicLevelAt(lvl)
}
