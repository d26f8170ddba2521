package logger_test

import (
	"errors"
	"os"

	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Example_withFields shows structured logging around a screening run
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}
	log := logger.New(cfg).WithComponent("screener")

	log.WithFields(map[string]interface{}{
		"symbols": 30,
		"workers": 5,
	}).Info("Screening started")

	err := errors.New("ratio page returned 404")
	log.WithError(err).WithField("symbol", "FPT").Warn("Symbol skipped")
}

// Example_writer shows a logger bound to an explicit writer, as the CLI does for stderr
func Example_writer() {
	log := logger.NewWithWriter(os.Stderr, "debug")
	log.Debugf("loaded strategy %s", "default")
}
