package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggersMu sync.Mutex
	loggers   = make(map[string]*logrus.Entry)
	instances []*logrus.Logger
	debug     bool
)

// NewLogger returns a pre-configured diagnostics logger for a component.
// Loggers are singletons per component. Output goes to stderr so it never
// mixes with the operator-facing progress lines on stdout.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if entry, ok := loggers[component]; ok {
		return entry
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	level := logrus.InfoLevel
	if raw := os.Getenv("XILMA_DEPLOY_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	if debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	instances = append(instances, logger)
	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetDebug raises every component logger to debug level. Called when the
// operator passes --verbose.
func SetDebug() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	debug = true
	for _, logger := range instances {
		logger.SetLevel(logrus.DebugLevel)
	}
}
