package logger

import (
	"go.uber.org/zap"
)

// Log is the process-wide logger. Init must run before first use; the
// default is a no-op logger so tests stay quiet.
var Log = zap.NewNop()

func Init(debug bool) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return
	}
	Log = l
}

func Sync() {
	_ = Log.Sync()
}
