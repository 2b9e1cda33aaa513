package logging

import (
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// instrumentationScope names the otelzap bridge logger.
const instrumentationScope = "github.com/fyrsmithlabs/contextiq"

// writers is swapped in tests.
var writers = map[string]io.Writer{
	WriterStderr: os.Stderr,
	WriterStdout: os.Stdout,
}

// buildCore tees the local writer and the OTEL bridge, then applies sampling.
func buildCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if w, ok := writers[cfg.Output.Writer]; ok {
		encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, &levelFilterCore{
			Core:     otelzap.NewCore(instrumentationScope, otelzap.WithLoggerProvider(otelProvider)),
			minLevel: cfg.Level,
		})
	}

	var core zapcore.Core
	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("no log output available (writer %q, otel provider set: %t)",
			cfg.Output.Writer, otelProvider != nil)
	case 1:
		core = cores[0]
	default:
		core = zapcore.NewTee(cores...)
	}
	return newSampledCore(core, cfg.Sampling), nil
}
